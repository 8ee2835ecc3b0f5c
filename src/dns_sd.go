package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the JSON KPI endpoint using DNS-SD.
 *
 * Description:
 *
 *     A dashboard on the same network can discover the KPI stream
 *     instead of being configured with an address and port.  This
 *     uses the pure-Go github.com/brutella/dnssd package for
 *     cross-platform mDNS/DNS-SD service announcement without
 *     requiring any system daemon or C library dependencies.
 */

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
)

const DNS_SD_SERVICE = "_diagtap-json._udp"

func dns_sd_default_service_name() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "diagtap"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "diagtap on " + hostname
}

func dns_sd_announce(port int) {
	var name = dns_sd_default_service_name()

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		diag_log.Error("DNS-SD: failed to create service", "err", svErr)

		return
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		diag_log.Error("DNS-SD: failed to create responder", "err", rpErr)

		return
	}

	var _, addErr = rp.Add(sv)
	if addErr != nil {
		diag_log.Error("DNS-SD: failed to add service", "err", addErr)

		return
	}

	diag_log.Info("DNS-SD: announcing JSON KPI stream", "port", port, "name", name)

	go func() {
		var respondErr = rp.Respond(context.Background())
		if respondErr != nil {
			diag_log.Error("DNS-SD: responder error", "err", respondErr)
		}
	}()
}
