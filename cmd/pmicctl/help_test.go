// =============================================================================
// help_test.go - Tests for Help System (help.go)
// =============================================================================
//
// printHelp writes to the writers it is given, so the tests pass
// strings.Builders instead of redirecting os.Stdout.
//
// =============================================================================

package main

import (
	"regexp"
	"strings"
	"testing"
)

func help(topic string) (string, string) {
	var out, errOut strings.Builder
	printHelp(&out, &errOut, topic)
	return out.String(), errOut.String()
}

func TestHelpOverview(t *testing.T) {
	out, errOut := help("")
	if errOut != "" {
		t.Errorf("unexpected error output %q", errOut)
	}
	for _, want := range []string{".state", ".set", ".ship", ".reboot", ".profile", ".quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("overview missing %q", want)
		}
	}
}

func TestHelpTopics(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"set", ".set <module> [index] <field> <value>"},
		{".set", ".set <module> [index] <field> <value>"},
		{"REBOOT", "delay-ms"},
		{"charger", "vtricklefast"},
		{"Buck", "vSet|software"},
	}
	for _, tc := range tests {
		t.Run(tc.topic, func(t *testing.T) {
			out, errOut := help(tc.topic)
			if errOut != "" {
				t.Fatalf("unexpected error output %q", errOut)
			}
			if !strings.Contains(out, tc.want) {
				t.Errorf("help %q: got %q, want it to contain %q", tc.topic, out, tc.want)
			}
		})
	}
}

func TestHelpUnknownTopic(t *testing.T) {
	out, errOut := help("warp")
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(errOut, "No help for 'warp'") || !strings.Contains(errOut, "charger") {
		t.Errorf("got %q", errOut)
	}
}

// Every dot-command in the overview has a detailed entry.
func TestHelpOverviewCommandsHaveTopics(t *testing.T) {
	re := regexp.MustCompile(`(?m)^  \.([a-z]+)`)
	for _, m := range re.FindAllStringSubmatch(helpOverview, -1) {
		if _, ok := commandHelp[m[1]]; !ok {
			t.Errorf("no help entry for .%s", m[1])
		}
	}
}

// Every module named in the overview has a field list.
func TestHelpOverviewModulesHaveTopics(t *testing.T) {
	i := strings.Index(helpOverview, "Modules:")
	if i < 0 {
		t.Fatal("overview lists no modules")
	}
	line := strings.SplitN(helpOverview[i:], "\n", 2)[0]
	for _, name := range strings.Fields(strings.TrimPrefix(line, "Modules:")) {
		_, isModule := moduleHelp[name]
		_, isCommand := commandHelp[name]
		if !isModule && !isCommand {
			t.Errorf("no help entry for module %s", name)
		}
	}
}
