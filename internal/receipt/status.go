package receipt

// CalculateStatus derives a receipt's summary status from its items. An empty
// receipt is RECEIVED; all items consumed is SHIPPED; all items untouched is
// RECEIVED; any other mix is PARTIAL. Evaluation order matters only for the
// empty and uniform edge cases.
func CalculateStatus(items []ItemQuantities) Status {
	if len(items) == 0 {
		return StatusReceived
	}
	allShipped := true
	allIntact := true
	for _, item := range items {
		if item.CurrentQty != 0 {
			allShipped = false
		}
		if item.CurrentQty != item.InitialQty {
			allIntact = false
		}
	}
	if allShipped {
		return StatusShipped
	}
	if allIntact {
		return StatusReceived
	}
	return StatusPartial
}
