package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"stride/internal/geo"
)

// DefaultUERE converts HDOP into an approximate horizontal accuracy in meters.
const DefaultUERE = 5.0

// NMEAConfig configures a serial GPS receiver.
type NMEAConfig struct {
	Device   string
	BaudRate int
	UERE     float64
}

type portOpener func(device string, mode *serial.Mode) (io.ReadCloser, error)

func openSerial(device string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(device, mode)
}

// NMEAProvider reads GGA fixes from a GPS receiver on a serial port.
type NMEAProvider struct {
	cfg  NMEAConfig
	open portOpener
	now  func() time.Time
	log  logrus.FieldLogger
}

// NewNMEAProvider creates a provider for the receiver at cfg.Device.
func NewNMEAProvider(cfg NMEAConfig, log logrus.FieldLogger) *NMEAProvider {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 9600
	}
	if cfg.UERE <= 0 {
		cfg.UERE = DefaultUERE
	}
	return &NMEAProvider{cfg: cfg, open: openSerial, now: time.Now, log: log}
}

// Permission probes the device by opening it.
func (p *NMEAProvider) Permission(ctx context.Context) (Permission, error) {
	if p.cfg.Device == "" {
		return PermissionUnavailable, nil
	}
	port, err := p.open(p.cfg.Device, p.mode())
	if err != nil {
		perm := classifyOpenError(err)
		p.log.WithError(err).WithField("device", p.cfg.Device).Debug("gps device probe failed")
		return perm, nil
	}
	port.Close()
	return PermissionGranted, nil
}

// RequestPermission cannot grant access to a device node at runtime, so it
// reports the same result as Permission.
func (p *NMEAProvider) RequestPermission(ctx context.Context) (Permission, error) {
	perm, err := p.Permission(ctx)
	if perm == PermissionDenied {
		p.log.WithField("device", p.cfg.Device).Warn("no access to gps device; check the device's group membership")
	}
	return perm, err
}

// Subscribe opens the device and streams GGA fixes until the subscription is
// closed.
func (p *NMEAProvider) Subscribe(ctx context.Context, opts Options) (Subscription, error) {
	port, err := p.open(p.cfg.Device, p.mode())
	if err != nil {
		if classifyOpenError(err) == PermissionDenied {
			return nil, fmt.Errorf("opening %s: %w", p.cfg.Device, ErrNotPermitted)
		}
		return nil, fmt.Errorf("opening %s: %w", p.cfg.Device, err)
	}

	st := newStream(ctx, opts, port)
	st.run(func() { readNMEA(st, port, p.cfg.UERE, p.now) })
	p.log.WithFields(logrus.Fields{
		"device": p.cfg.Device,
		"baud":   p.cfg.BaudRate,
	}).Info("gps receiver subscribed")
	return st, nil
}

func (p *NMEAProvider) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: p.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

func classifyOpenError(err error) Permission {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PermissionDenied:
			return PermissionDenied
		default:
			return PermissionUnavailable
		}
	}
	if errors.Is(err, fs.ErrPermission) {
		return PermissionDenied
	}
	return PermissionUnavailable
}

// readNMEA turns GGA sentences from r into samples. Unparseable sentences are
// reported and skipped; sentences without a fix are ignored.
func readNMEA(st *stream, r io.Reader, uere float64, now func() time.Time) {
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			st.report(fmt.Errorf("parsing nmea: %w", err))
			continue
		}
		if sentence.DataType() != nmea.TypeGGA {
			continue
		}

		gga := sentence.(nmea.GGA)
		if gga.FixQuality == nmea.Invalid {
			continue
		}
		if !(geo.Point{Lat: gga.Latitude, Lng: gga.Longitude}).Valid() {
			continue
		}

		sample := Sample{
			Lat:            gga.Latitude,
			Lng:            gga.Longitude,
			AccuracyMeters: gga.HDOP * uere,
			Timestamp:      now(),
		}
		if !st.emit(sample) {
			return
		}
	}
	if err := scan.Err(); err != nil && st.ctx.Err() == nil {
		st.report(fmt.Errorf("reading gps device: %w", err))
	}
}
