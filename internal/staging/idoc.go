package staging

import (
	"strings"
	"unicode"
)

// IDoc segment names.
const (
	segOBDHeader   = "E1BPOBDLVHDR"
	segOBDItem     = "E1BPOBDLVITEM"
	segAddress     = "E1BPADR1"
	segExtension   = "E1BPEXTC"
	segHeaderCon   = "E1BPOBDLVHDRCON"
	segHeaderCtrl  = "E1BPOBDLVHDRCTRLCON"
	segDeadline    = "E1BPDLVDEADLN"
	segItemCon     = "E1BPOBDLVITEMCON"
	segItemCtrlCon = "E1BPOBDLVITEMCTRLCON"
	segHUHeader    = "E1BPDLVHDUNHDR"
	segHUItem      = "E1BPDLVHDUNITM"

	extCarrier      = "ZCARRIER_NAME"
	extDeliveryDate = "ZDELV_DATE"

	deadlineDelivery   = "WSHDRLFDAT"
	deadlineGoodsIssue = "WSHDRWADTI"
)

// segment splits an IDoc line on ";" and returns the segment name with its
// trimmed columns. cols[0] is the segment name.
func segment(line string) (string, []string) {
	cols := splitTrim(line, ";")
	return strings.ToUpper(cols[0]), cols
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

type obdHeader struct {
	delivery, grossWeight, volume string
	recipient, address, region    string
	carrier, deliveryDate         string
}

func (h *obdHeader) row() []any {
	return []any{h.delivery, h.grossWeight, h.volume, h.recipient, h.address, h.region, h.carrier, h.deliveryDate}
}

// parseOutboundDelivery walks DELVRY IDoc segments. Address and extension
// segments enrich the most recent header.
func parseOutboundDelivery(lines []string) []Rows {
	var headers []*obdHeader
	var items [][]any
	var cur *obdHeader

	for _, line := range lines {
		seg, cols := segment(line)
		switch seg {
		case segOBDHeader:
			cur = &obdHeader{
				delivery:    col(cols, 1),
				grossWeight: col(cols, 6),
				volume:      col(cols, 10),
			}
			headers = append(headers, cur)
		case segAddress:
			if cur == nil {
				continue
			}
			cur.recipient = col(cols, 3)
			cur.address = strings.TrimSpace(col(cols, 16) + " " + col(cols, 8))
			cur.region = col(cols, 28)
		case segExtension:
			if cur == nil {
				continue
			}
			switch strings.ToUpper(col(cols, 1)) {
			case extCarrier:
				cur.carrier = col(cols, 2)
			case extDeliveryDate:
				cur.deliveryDate = col(cols, 2)
			}
		case segOBDItem:
			items = append(items, []any{
				col(cols, 1), col(cols, 2), col(cols, 3), col(cols, 5),
				col(cols, 8), col(cols, 9), col(cols, 15),
			})
		}
	}

	hdrRows := make([][]any, len(headers))
	for i, h := range headers {
		hdrRows[i] = h.row()
	}
	return []Rows{
		{Table: OBDHeaderTable, Rows: hdrRows},
		{Table: OBDItemTable, Rows: items},
	}
}

type obdcHeader struct {
	delivery, lfdat, wadti string
}

// parseOBDConfirm walks SHP_OBDLV_CONFIRM_DECENTRAL segments. Segments that
// carry a numeric delivery number in column 1 set the current delivery; one
// header row is produced per delivery per file.
func parseOBDConfirm(lines []string) []Rows {
	var (
		current   string
		order     []string
		headers   = map[string]*obdcHeader{}
		positions [][]any
		controls  [][]any
		hus       [][]any
		packed    [][]any
		exts      [][]any
	)

	header := func(delivery string) *obdcHeader {
		h, ok := headers[delivery]
		if !ok {
			h = &obdcHeader{delivery: delivery}
			headers[delivery] = h
			order = append(order, delivery)
		}
		return h
	}

	for _, line := range lines {
		seg, cols := segment(line)
		switch seg {
		case segHeaderCon, segHeaderCtrl, segDeadline, segItemCon, segItemCtrlCon, segHUHeader:
			if d := col(cols, 1); isDigits(d) {
				current = d
			}
		}

		switch seg {
		case segHeaderCon, segHeaderCtrl:
			if current != "" {
				header(current)
			}
		case segDeadline:
			if current == "" {
				continue
			}
			h := header(current)
			switch strings.ToUpper(col(cols, 2)) {
			case deadlineDelivery:
				h.lfdat = col(cols, 3)
			case deadlineGoodsIssue:
				h.wadti = col(cols, 3)
			}
		case segItemCon:
			positions = append(positions, []any{
				current, col(cols, 2), col(cols, 3), col(cols, 4), col(cols, 5), col(cols, 8),
			})
		case segItemCtrlCon:
			controls = append(controls, []any{current, col(cols, 2), col(cols, 3)})
		case segHUHeader:
			hus = append(hus, []any{
				current, col(cols, 2), col(cols, 3), col(cols, 4), col(cols, 5), col(cols, 6),
			})
		case segHUItem:
			packed = append(packed, []any{
				col(cols, 1), col(cols, 2), col(cols, 3), col(cols, 4),
				col(cols, 5), col(cols, 6), col(cols, 7), col(cols, 8),
			})
		case segExtension:
			exts = append(exts, []any{
				col(cols, 1), col(cols, 2), col(cols, 3), col(cols, 4), col(cols, 5),
			})
		}
	}

	hdrRows := make([][]any, len(order))
	for i, d := range order {
		h := headers[d]
		hdrRows[i] = []any{h.delivery, h.lfdat, h.wadti}
	}

	return []Rows{
		{Table: OBDCHeaderTable, Rows: hdrRows},
		{Table: OBDCPositionTable, Rows: positions},
		{Table: OBDCControlTable, Rows: controls},
		{Table: OBDCHandlingUnitTable, Rows: hus},
		{Table: OBDCPackedContentTable, Rows: packed},
		{Table: OBDCExtensionTable, Rows: exts},
	}
}
