package canonical

import (
	"github.com/sirupsen/logrus"

	"channel-sync-service/internal/models"
)

// Resolution is the outcome of resolving one channel-local SKU
type Resolution struct {
	MasterSKU    string
	UnitsPerCase int
	// Mapped is false when no mapping row exists and the channel SKU was
	// passed through as its own master SKU.
	Mapped bool
}

// SKUResolver resolves channel-local SKUs to master SKUs using an in-memory
// snapshot of the mapping table. A run loads the snapshot once; per-record
// lookups never touch the database.
type SKUResolver struct {
	mappings map[string]models.SKUMapping
	unmapped map[string]struct{}
}

// NewSKUResolver builds a resolver from a mapping snapshot
func NewSKUResolver(mappings []models.SKUMapping) *SKUResolver {
	r := &SKUResolver{
		mappings: make(map[string]models.SKUMapping, len(mappings)),
		unmapped: make(map[string]struct{}),
	}
	for _, m := range mappings {
		r.mappings[mappingKey(m.Channel, m.ChannelSKU)] = m
	}
	return r
}

// Resolve maps a channel SKU to its master SKU. An unmapped SKU is passed
// through unchanged with UnitsPerCase 1 and logged once per run.
func (r *SKUResolver) Resolve(channel models.ChannelType, channelSKU string) Resolution {
	if m, ok := r.mappings[mappingKey(channel, channelSKU)]; ok {
		unitsPerCase := 1
		if m.IsCaseProduct && m.UnitsPerCase > 1 {
			unitsPerCase = m.UnitsPerCase
		}
		return Resolution{
			MasterSKU:    m.MasterSKU,
			UnitsPerCase: unitsPerCase,
			Mapped:       true,
		}
	}

	key := mappingKey(channel, channelSKU)
	if _, seen := r.unmapped[key]; !seen {
		r.unmapped[key] = struct{}{}
		logrus.WithFields(logrus.Fields{
			"channel":     channel,
			"channel_sku": channelSKU,
		}).Warn("No SKU mapping found, passing through channel SKU")
	}

	return Resolution{
		MasterSKU:    channelSKU,
		UnitsPerCase: 1,
		Mapped:       false,
	}
}

// UnmappedCount returns the number of distinct unmapped SKUs seen so far
func (r *SKUResolver) UnmappedCount() int {
	return len(r.unmapped)
}

func mappingKey(channel models.ChannelType, channelSKU string) string {
	return string(channel) + "\x00" + channelSKU
}
