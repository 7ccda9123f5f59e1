package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RelayTarget is the first argument of every client message mpvkit's input
// config produces; other scripts' messages are ignored.
const RelayTarget = "mpvkit"

// Relay verbs carried in client-message events.
const (
	RelayToggleFullscreen = "toggle-fullscreen"
	RelayExitFullscreen   = "exit-fullscreen"
	RelayTogglePlay       = "toggle-play"
	RelaySeek             = "seek"
	RelayToggleMute       = "toggle-mute"
	RelayClick            = "click"
	RelayDoubleClick      = "double-click"
)

type inputBinding struct {
	key  string
	verb string
	args []string
}

// Clicks are relayed raw; the host disambiguates single from double clicks.
var inputBindings = []inputBinding{
	{key: "f", verb: RelayToggleFullscreen},
	{key: "ESC", verb: RelayExitFullscreen},
	{key: "SPACE", verb: RelayTogglePlay},
	{key: "RIGHT", verb: RelaySeek, args: []string{"5"}},
	{key: "LEFT", verb: RelaySeek, args: []string{"-5"}},
	{key: "m", verb: RelayToggleMute},
	{key: "MBTN_LEFT", verb: RelayClick},
	{key: "MBTN_LEFT_DBL", verb: RelayDoubleClick},
}

func inputConfig() string {
	var b strings.Builder
	b.WriteString("# generated by mpvkit; regenerated on every engine start\n")
	for _, binding := range inputBindings {
		fields := append([]string{binding.key, "script-message", RelayTarget, binding.verb}, binding.args...)
		b.WriteString(strings.Join(fields, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// writeInputConfig rewrites the relay bindings next to the control socket.
func writeInputConfig(socketPath string) (string, error) {
	path := strings.TrimSuffix(socketPath, filepath.Ext(socketPath)) + "-input.conf"
	if err := os.WriteFile(path, []byte(inputConfig()), 0o600); err != nil {
		return "", fmt.Errorf("write input config: %w", err)
	}
	return path, nil
}
