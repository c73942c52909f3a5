package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendNoopWithoutConfiguration(t *testing.T) {
	// An unconfigured notifier silently drops messages instead of dialing out.
	assert.NoError(t, NewBotNotifier("", 0).Send("hello"))
	assert.NoError(t, NewBotNotifier("  ", 42).Send("hello"))
	assert.NoError(t, NewBotNotifier("token", 42).Send("   "))
}
