package correlate

import (
	"time"

	"argus/core"
)

// Indexes are the request-scoped lookup structures built once per run and
// passed by reference into rule evaluation. Nothing here survives the run.
type Indexes struct {
	// EventsByIP groups filtered security events by source IP.
	EventsByIP map[string][]core.SecurityEvent
	// EventsByUser groups filtered security events by user email. An event
	// carrying both an IP and a user appears in both maps.
	EventsByUser map[string][]core.SecurityEvent
	// EndpointsByIP groups endpoints by their last known IP.
	EndpointsByIP map[string][]core.Endpoint
	// BlockedIPs holds IPs with an active, unexpired block.
	BlockedIPs map[string]struct{}
}

// BuildIndexes constructs fresh lookup maps over a loaded dataset. now is
// the run's reference time used for block-list expiry.
func BuildIndexes(ds *Dataset, now time.Time) *Indexes {
	idx := &Indexes{
		EventsByIP:    make(map[string][]core.SecurityEvent),
		EventsByUser:  make(map[string][]core.SecurityEvent),
		EndpointsByIP: make(map[string][]core.Endpoint),
		BlockedIPs:    make(map[string]struct{}),
	}

	for _, event := range ds.SecurityEvents {
		if event.IPAddress != "" {
			idx.EventsByIP[event.IPAddress] = append(idx.EventsByIP[event.IPAddress], event)
		}
		if event.UserEmail != "" {
			idx.EventsByUser[event.UserEmail] = append(idx.EventsByUser[event.UserEmail], event)
		}
	}

	for _, endpoint := range ds.Endpoints {
		if endpoint.LastIP != "" {
			idx.EndpointsByIP[endpoint.LastIP] = append(idx.EndpointsByIP[endpoint.LastIP], endpoint)
		}
	}

	for _, blocked := range ds.BlockedIPs {
		if blocked.CurrentlyBlocked(now) {
			idx.BlockedIPs[blocked.IPAddress] = struct{}{}
		}
	}

	return idx
}

// EventsForKey returns the candidate events indexed under a correlation key.
func (idx *Indexes) EventsForKey(keyType, key string) []core.SecurityEvent {
	switch keyType {
	case core.CorrelationKeyIP:
		return idx.EventsByIP[key]
	case core.CorrelationKeyUser:
		return idx.EventsByUser[key]
	default:
		return nil
	}
}

// KeysForType returns every distinct correlation key of the given type.
func (idx *Indexes) KeysForType(keyType string) []string {
	var source map[string][]core.SecurityEvent
	switch keyType {
	case core.CorrelationKeyIP:
		source = idx.EventsByIP
	case core.CorrelationKeyUser:
		source = idx.EventsByUser
	default:
		return nil
	}

	keys := make([]string, 0, len(source))
	for k := range source {
		keys = append(keys, k)
	}
	return keys
}
