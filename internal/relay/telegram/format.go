package telegram

// maskPhone hides the middle digits of a shared phone number before it is
// relayed to an operator.
func maskPhone(phone string) string {
	if len(phone) < 7 {
		return phone
	}
	if phone[0] == '+' {
		// International format: +86138****1234
		if len(phone) >= 11 {
			return phone[:5] + "****" + phone[len(phone)-4:]
		}
		return phone
	}
	// Domestic format: 138****1234
	return phone[:3] + "****" + phone[len(phone)-4:]
}
