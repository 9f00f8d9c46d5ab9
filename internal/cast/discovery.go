package cast

import (
	"context"
	"io"
	stdlog "log"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

const (
	googlecastService = "_googlecast._tcp"

	// videoOutCapability is bit 0 of the TXT "ca" bitmask. Devices without
	// it are audio-only.
	videoOutCapability = 1

	queryTimeout     = 750 * time.Millisecond
	pollIntervalFast = 1 * time.Second
	pollIntervalSlow = 4 * time.Second
)

// Discoverer polls the local network for cast devices over mDNS and hands
// each completed round's device set to a sink. Every round replaces the
// previous set wholesale, so a device that stops answering disappears from
// the next update.
type Discoverer struct {
	sink func([]Target)
	log  zerolog.Logger

	mu      sync.Mutex
	known   int
	running bool
}

// NewDiscoverer creates a discoverer delivering device sets to sink.
func NewDiscoverer(sink func([]Target), log zerolog.Logger) *Discoverer {
	return &Discoverer{sink: sink, log: log}
}

// Run polls until ctx is canceled. It polls quickly while no device is
// known and backs off once at least one answers. Run returns immediately
// if a poll loop is already active.
func (d *Discoverer) Run(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		targets := d.poll()
		d.mu.Lock()
		d.known = len(targets)
		d.mu.Unlock()
		d.sink(targets)

		timer.Reset(d.interval())
	}
}

func (d *Discoverer) interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.known > 0 {
		return pollIntervalSlow
	}
	return pollIntervalFast
}

// poll runs one mDNS query round across all active interfaces and returns
// the deduplicated device set, ordered by address for stable updates.
func (d *Discoverer) poll() []Target {
	entriesCh := make(chan *mdns.ServiceEntry, 256)
	byAddr := make(map[string]Target)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entriesCh {
			target, ok := targetFromEntry(entry)
			if !ok {
				continue
			}
			byAddr[target.Addr()] = target
		}
	}()

	query := func(iface *net.Interface) {
		params := mdns.DefaultParams(googlecastService)
		params.Entries = entriesCh
		params.Timeout = queryTimeout
		params.DisableIPv6 = true
		params.WantUnicastResponse = true
		params.Logger = stdlog.New(io.Discard, "", 0)
		params.Interface = iface
		if err := mdns.Query(params); err != nil {
			d.log.Debug().Err(err).Msg("mdns query failed")
		}
	}

	interfaces := activeInterfaces()
	if len(interfaces) == 0 {
		query(nil)
	} else {
		var wg sync.WaitGroup
		for _, iface := range interfaces {
			wg.Add(1)
			go func(iface net.Interface) {
				defer wg.Done()
				query(&iface)
			}(iface)
		}
		wg.Wait()
	}

	close(entriesCh)
	<-done

	targets := make([]Target, 0, len(byAddr))
	for _, t := range byAddr {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Addr() < targets[j].Addr() })
	return targets
}

func targetFromEntry(entry *mdns.ServiceEntry) (Target, bool) {
	if entry == nil || entry.AddrV4 == nil {
		return Target{}, false
	}
	if !strings.Contains(entry.Name, "_googlecast") {
		return Target{}, false
	}

	target := Target{
		Name: friendlyName(entry),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
	}

	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "ca="); ok {
			target.AudioOnly = audioOnly(after)
			break
		}
	}
	return target, true
}

// friendlyName prefers the TXT "fn" field and falls back to the service
// instance name with the protocol suffix stripped.
func friendlyName(entry *mdns.ServiceEntry) string {
	name := entry.Name
	for _, txt := range entry.InfoFields {
		if after, ok := strings.CutPrefix(txt, "fn="); ok {
			name = after
			break
		}
	}
	if idx := strings.Index(name, "._googlecast"); idx > 0 {
		name = name[:idx]
	}
	return name
}

// audioOnly reads the "ca" capability bitmask. A parse failure counts as a
// standard video device so discovery never hides a usable target.
func audioOnly(caField string) bool {
	ca, err := strconv.Atoi(caField)
	if err != nil {
		return false
	}
	return ca&videoOutCapability == 0
}

// activeInterfaces lists interfaces worth querying: up, multicast-capable,
// not loopback, with an IPv4 address. Multiple adapters (VPN, virtual
// bridges) mean the OS default is not always the one reaching the device.
func activeInterfaces() []net.Interface {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var active []net.Interface
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				active = append(active, iface)
				break
			}
		}
	}
	return active
}
