// Package model holds the staging and final record shapes of the four WMS
// document types.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// DocType identifies one of the fixed WMS document shapes.
type DocType string

const (
	DocCartoning        DocType = "cartoning"
	DocWaveConfirm      DocType = "wave_confirm"
	DocOutboundDelivery DocType = "outbound_delivery"
	DocOBDConfirm       DocType = "obd_confirm"
)

// AllDocTypes returns every document type in promotion order.
func AllDocTypes() []DocType {
	return []DocType{DocCartoning, DocWaveConfirm, DocOutboundDelivery, DocOBDConfirm}
}

// ParseDocType converts a CLI or config value into a DocType. It accepts the
// canonical snake_case names plus the WMS interface names.
func ParseDocType(s string) (DocType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cartoning":
		return DocCartoning, nil
	case "wave_confirm", "waveconfirm":
		return DocWaveConfirm, nil
	case "outbound_delivery", "outbounddelivery", "obd":
		return DocOutboundDelivery, nil
	case "obd_confirm", "outbound_delivery_confirm", "outbounddeliveryconfirm", "obdconfirm":
		return DocOBDConfirm, nil
	default:
		return "", eris.Errorf("unknown document type: %q (valid: cartoning, wave_confirm, outbound_delivery, obd_confirm)", s)
	}
}

// String returns the canonical name.
func (d DocType) String() string {
	return string(d)
}
