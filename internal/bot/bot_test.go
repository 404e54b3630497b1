package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cmd, args, ok := p.ParseCommand("/top")
	assert.True(t, ok)
	assert.Equal(t, "top", cmd)
	assert.Empty(t, args)

	cmd, args, ok = p.ParseCommand("!announce секрет Всем привет")
	assert.True(t, ok)
	assert.Equal(t, "announce", cmd)
	assert.Equal(t, []string{"секрет", "Всем", "привет"}, args)

	cmd, _, ok = p.ParseCommand("  /MyKarma  ")
	assert.True(t, ok)
	assert.Equal(t, "mykarma", cmd)
}

func TestParseCommand_BotMention(t *testing.T) {
	p := NewCommandParser()

	cmd, _, ok := p.ParseCommand("/top@karma_bot")
	assert.True(t, ok)
	assert.Equal(t, "top", cmd)
}

func TestParseCommand_NotACommand(t *testing.T) {
	p := NewCommandParser()

	_, _, ok := p.ParseCommand("просто текст")
	assert.False(t, ok)

	_, _, ok = p.ParseCommand("")
	assert.False(t, ok)

	// Префикс без команды
	_, _, ok = p.ParseCommand("/")
	assert.False(t, ok)
}
