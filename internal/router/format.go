package router

import (
	"fmt"
)

// Outgoing text templates. Operator-facing texts are recorded verbatim as
// message content, so changing them changes the correlation substrate.

func formatGreeting(firstName string) string {
	if firstName == "" {
		return textPickOperator
	}
	return fmt.Sprintf("Hello %s!\n\n%s", firstName, textPickOperator)
}

func formatUserInfo(userID int64, username string) string {
	info := fmt.Sprintf("[user %d]", userID)
	if username != "" {
		info += " @" + username
	}
	return info
}

func formatSessionNotice(userID int64, username string) string {
	return fmt.Sprintf(
		"New conversation\n\n%s\n\nReply to this message to respond.",
		formatUserInfo(userID, username),
	)
}

func formatForward(userID int64, username, text string) string {
	return fmt.Sprintf("%s\n\n%s", formatUserInfo(userID, username), text)
}

func formatOperatorReply(operatorName, text string) string {
	return fmt.Sprintf("[reply] %s:\n\n%s", operatorName, text)
}

const (
	textPickOperator        = "Please choose an operator to start a conversation:"
	textPickOperatorFirst   = "Please choose an operator first:"
	textUnknownOperator     = "That operator is not available. Please choose again:"
	textAlreadyConnected    = "You are already connected to %s. Just type your message."
	textConnected           = "Connected to %s. Send your question and it will be relayed."
	textForwardAck          = "Message delivered. Please wait for a reply."
	textForwardFailed       = "Delivery failed. Please send your message again."
	textReplyAck            = "Reply delivered."
	textReplyFailed         = "Reply recorded but delivery to the user failed."
	textReplyNoMatch        = "Could not find the conversation this reply belongs to. Reply directly to a forwarded message."
	textSessionClosedUser   = "This conversation was closed after a period of inactivity. Send a new message to start again."
	textSessionClosedOp     = "Conversation %s was closed after a period of inactivity."
)
