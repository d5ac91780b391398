package correlate

import (
	"argus/core"
	"argus/threat"
)

// enrichment augments a surviving candidate with related endpoint records,
// endpoint telemetry, block-list membership, and threat-intel verdicts.
type enrichment struct {
	Sources        []string
	Endpoints      []core.Endpoint
	EndpointEvents []core.EndpointEvent
	IntelMatches   []core.ThreatIntelMatch
}

// enrichCandidate builds the enrichment for a candidate. Endpoint and
// block-list attribution apply to IP-keyed candidates only; threat intel
// applies to every distinct IP among the matched events.
func enrichCandidate(idx *Indexes, ds *Dataset, keyType, key string, matched []core.SecurityEvent, intel map[string]threat.Result) enrichment {
	enr := enrichment{Sources: []string{core.SourceSecurityEvents}}

	if keyType == core.CorrelationKeyIP {
		if endpoints := idx.EndpointsByIP[key]; len(endpoints) > 0 {
			enr.Endpoints = endpoints
			enr.Sources = append(enr.Sources, core.SourceEndpoints)

			endpointIDs := make(map[string]struct{}, len(endpoints))
			for _, ep := range endpoints {
				endpointIDs[ep.ID] = struct{}{}
			}
			for _, ee := range ds.EndpointEvents {
				if _, ok := endpointIDs[ee.EndpointID]; ok {
					enr.EndpointEvents = append(enr.EndpointEvents, ee)
				}
			}
			if len(enr.EndpointEvents) > 0 {
				enr.Sources = append(enr.Sources, core.SourceEndpointEvents)
			}
		}

		if _, blocked := idx.BlockedIPs[key]; blocked {
			enr.Sources = append(enr.Sources, core.SourceBlockedIPs)
		}
	}

	seen := make(map[string]struct{})
	for _, event := range matched {
		ip := event.IPAddress
		if ip == "" {
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}

		result, ok := intel[ip]
		if !ok || !result.Matched {
			continue
		}
		source := ""
		if len(result.Sources) > 0 {
			source = result.Sources[0]
		}
		enr.IntelMatches = append(enr.IntelMatches, core.ThreatIntelMatch{
			Indicator: ip,
			Source:    source,
			Families:  result.Families,
		})
	}
	if len(enr.IntelMatches) > 0 {
		enr.Sources = append(enr.Sources, core.SourceThreatIntel)
	}

	return enr
}
