package router

import (
	"strings"
	"testing"
)

func TestFormatUserInfo(t *testing.T) {
	if got := formatUserInfo(1000, "ada"); got != "[user 1000] @ada" {
		t.Errorf("formatUserInfo() = %q", got)
	}
	if got := formatUserInfo(1000, ""); got != "[user 1000]" {
		t.Errorf("formatUserInfo() without username = %q", got)
	}
}

func TestFormatForwardContainsIdentityAndText(t *testing.T) {
	got := formatForward(1000, "ada", "need help")
	if !strings.Contains(got, "[user 1000] @ada") {
		t.Errorf("forward missing identity: %q", got)
	}
	if !strings.HasSuffix(got, "need help") {
		t.Errorf("forward missing text: %q", got)
	}
}

func TestFormatSessionNoticeIsReplyable(t *testing.T) {
	got := formatSessionNotice(1000, "ada")
	if !strings.Contains(got, "[user 1000] @ada") {
		t.Errorf("notice missing identity: %q", got)
	}
	if !strings.Contains(got, "Reply to this message") {
		t.Errorf("notice missing reply instruction: %q", got)
	}
}

func TestFormatOperatorReply(t *testing.T) {
	got := formatOperatorReply("Alice", "try restarting")
	if !strings.HasPrefix(got, "[reply] Alice:") {
		t.Errorf("reply missing attribution: %q", got)
	}
	if !strings.Contains(got, "try restarting") {
		t.Errorf("reply missing text: %q", got)
	}
}

func TestFormatGreeting(t *testing.T) {
	if got := formatGreeting("Ada"); !strings.HasPrefix(got, "Hello Ada!") {
		t.Errorf("greeting = %q", got)
	}
	if got := formatGreeting(""); got != textPickOperator {
		t.Errorf("anonymous greeting = %q", got)
	}
}
