package goble

import (
	ble "github.com/go-ble/ble"

	"github.com/Landixus/potato/internal/device"
)

// bleAdvertisement adapts ble.Advertisement to device.Advertisement.
type bleAdvertisement struct {
	adv ble.Advertisement
}

// NewAdvertisement wraps a raw go-ble advertisement.
func NewAdvertisement(adv ble.Advertisement) device.Advertisement {
	return &bleAdvertisement{adv: adv}
}

func (a *bleAdvertisement) LocalName() string { return a.adv.LocalName() }
func (a *bleAdvertisement) Addr() string      { return a.adv.Addr().String() }
func (a *bleAdvertisement) RSSI() int         { return a.adv.RSSI() }
func (a *bleAdvertisement) Connectable() bool { return a.adv.Connectable() }

func (a *bleAdvertisement) Services() []string {
	bleServices := a.adv.Services()
	result := make([]string, len(bleServices))
	for i, svc := range bleServices {
		result[i] = device.NormalizeUUID(svc.String())
	}
	return result
}
