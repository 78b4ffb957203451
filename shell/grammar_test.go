package shell

import (
	"errors"
	"reflect"
	"regexp"
	"testing"
)

// TestProtocolConstants pins the wire strings the firmware relies on.
func TestProtocolConstants(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Prompt", Prompt, "uart:~$ "},
		{"ValuePrefix", ValuePrefix, "Value:"},
		{"SuccessPrefix", SuccessPrefix, "Success:"},
		{"ErrorPrefix", ErrorPrefix, "Error:"},
		{"BootBanner", BootBanner, "*** Booting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestCommandFormatting(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Get", FormatGet("npmx charger module charger", NoIndex), "npmx charger module charger get"},
		{"Get indexed", FormatGet("npmx buck voltage normal", 1), "npmx buck voltage normal get 1"},
		{"Set", FormatSet("npmx charger charging_current", NoIndex, "400"), "npmx charger charging_current set 400"},
		{"Set indexed", FormatSet("npmx ldsw mode", 0, "1"), "npmx ldsw mode set 0 1"},
		{"Key", Key("npmx buck status", VerbSet, 0), "npmx buck status set 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		raw      string
		wantType LineType
		wantData string
	}{
		{"Value: 4200 mV.", LineValue, "4200 mV."},
		{"uart:~$ Success: 1", LineSuccess, "1"},
		{"uart:~$ uart:~$ Error: Wrong parameter value.", LineError, "Wrong parameter value."},
		{"*** Booting nRF Connect SDK ***", LineInfo, ""},
		{"uart:~$ ", LineEmpty, ""},
		{"", LineEmpty, ""},
		{"  ", LineEmpty, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ClassifyLine(tt.raw)
			if got.Type != tt.wantType {
				t.Errorf("type: got %v, want %v", got.Type, tt.wantType)
			}
			if got.Data != tt.wantData {
				t.Errorf("data: got %q, want %q", got.Data, tt.wantData)
			}
		})
	}
}

func TestIsEcho(t *testing.T) {
	cmd := "npmx charger module charger get"
	if !IsEcho(ClassifyLine("uart:~$ "+cmd), cmd) {
		t.Error("prompted echo not recognised")
	}
	if IsEcho(ClassifyLine("Value: 1"), cmd) {
		t.Error("reply mistaken for echo")
	}
}

func TestCommandPattern(t *testing.T) {
	tests := []struct {
		name      string
		pattern   Pattern
		command   string
		wantOK    bool
		wantVerb  string
		wantIndex int
		wantArgs  string
	}{
		{"get", CommandPattern("npmx charger module charger", false), "npmx charger module charger get", true, VerbGet, NoIndex, ""},
		{"set", CommandPattern("npmx charger module charger", false), "npmx charger module charger set 1", true, VerbSet, NoIndex, "1"},
		{"set without value", CommandPattern("npmx charger module charger", false), "npmx charger module charger set", false, "", 0, ""},
		{"get with value", CommandPattern("npmx charger module charger", false), "npmx charger module charger get 1", false, "", 0, ""},
		{"other stem", CommandPattern("npmx charger module charger", false), "npmx charger module recharge get", false, "", 0, ""},
		{"indexed get", CommandPattern("npmx buck voltage normal", true), "npmx buck voltage normal get 1", true, VerbGet, 1, ""},
		{"indexed set", CommandPattern("npmx buck voltage normal", true), "npmx buck voltage normal set 0 1800", true, VerbSet, 0, "1800"},
		{"indexed missing index", CommandPattern("npmx buck voltage normal", true), "npmx buck voltage normal get", false, "", 0, ""},
		{"quoted payload", CommandPattern("fuel_gauge model", false), `fuel_gauge model set "LP803448"`, true, VerbSet, NoIndex, `"LP803448"`},
		{"action", ActionPattern("npmx ship mode ship"), "npmx ship mode ship", true, "", NoIndex, ""},
		{"action with args", ActionPattern("delayed_reboot"), "delayed_reboot set 100", true, "", NoIndex, "set 100"},
		{"regex metacharacters", CommandPattern("a.b", false), "axb get", false, "", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := tt.pattern.Match(tt.command)
			if ok != tt.wantOK {
				t.Fatalf("match: got %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Verb != tt.wantVerb {
				t.Errorf("verb: got %q, want %q", m.Verb, tt.wantVerb)
			}
			if m.Index != tt.wantIndex {
				t.Errorf("index: got %d, want %d", m.Index, tt.wantIndex)
			}
			if m.Args != tt.wantArgs {
				t.Errorf("args: got %q, want %q", m.Args, tt.wantArgs)
			}
		})
	}
}

func TestReplyValue(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"Value: 4200 mV.", "4200 mV"},
		{"Success: 4200 mV", "4200 mV"},
		{"Value:1", "1"},
		{"Success:", ""},
		{"model list:\n\"A\"\nValue: \"B\"", `"B"`},
		{"Value: 1\nSuccess: 2", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := ReplyValue(tt.reply)
			if err != nil {
				t.Fatalf("ReplyValue: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	_, err := ReplyValue("Error: nope")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("got %v, want ParseError", err)
	}
}

// TestEchoParity checks that a get reply and a set reply carrying the same
// payload decode to the same value.
func TestEchoParity(t *testing.T) {
	mv := Millivolts(2)
	for _, payload := range []string{"4200 mV", "3600", "1000 mV."} {
		a, errA := mv.Decode("Value: " + payload)
		b, errB := mv.Decode("Success: " + payload)
		if errA != nil || errB != nil {
			t.Fatalf("decode %q: %v %v", payload, errA, errB)
		}
		if a != b {
			t.Errorf("%q: get %v, set %v", payload, a, b)
		}
	}
}

func TestScaledCodecs(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec[float64]
		reply string
		want  float64
		wire  string
	}{
		{"millivolts", Millivolts(2), "Value: 4200 mV", 4.2, "4200"},
		{"millivolts rounding", Millivolts(1), "Success: 1849 mV", 1.8, "1800"},
		{"milliamps", Milliamps(3), "Value: 1500 mA", 1.5, "1500"},
		{"number", Number(0), "Value: 400 mA", 400, "400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.codec.Decode(tt.reply)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if wire := tt.codec.Encode(got); wire != tt.wire {
				t.Errorf("encode: got %q, want %q", wire, tt.wire)
			}
		})
	}

	if _, err := Millivolts(2).Decode("Value: high"); err == nil {
		t.Error("expected parse error for non-numeric payload")
	}
}

func TestBooleanCodec(t *testing.T) {
	tests := []struct {
		reply   string
		want    bool
		wantErr bool
	}{
		{"Value: 1", true, false},
		{"Success: 0", false, false},
		{"Value: enabled", true, false},
		{"Value: false.", false, false},
		{"Value: maybe", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := Boolean.Decode(tt.reply)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if Boolean.Encode(true) != "1" || Boolean.Encode(false) != "0" {
		t.Error("boolean must encode as 0/1")
	}
}

func TestEnumCodec(t *testing.T) {
	mode := Enum(EnumValue{"loadSwitch", "0"}, EnumValue{"LDO", "1"})
	tests := []struct {
		reply string
		want  string
	}{
		{"Value: 0", "loadSwitch"},
		{"Success: 1", "LDO"},
		{"Value: LDO", "LDO"},
		{"Value: ldo", "LDO"},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := mode.Decode(tt.reply)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := mode.Decode("Value: 7"); err == nil {
		t.Error("expected error for out-of-table value")
	}
	if got := mode.Encode("LDO"); got != "1" {
		t.Errorf("encode: got %q, want %q", got, "1")
	}

	if got := mode.Encode("ldo"); got != "1" {
		t.Errorf("encode ignoring case: got %q, want %q", got, "1")
	}
	if err := mode.Check("loadswitch"); err != nil {
		t.Errorf("check: %v", err)
	}
	var ve *ValueError
	if err := mode.Check("dcdc"); !errors.As(err, &ve) || !reflect.DeepEqual(ve.Allowed, []string{"loadSwitch", "LDO"}) {
		t.Errorf("check unknown: got %v", err)
	}

	positional := Enum(EnumValue{"10%", "10"}, EnumValue{"20%", "20"})
	if got, _ := positional.Decode("Value: 1"); got != "20%" {
		t.Errorf("positional: got %q, want %q", got, "20%")
	}
}

func TestPayloadCodecs(t *testing.T) {
	name, err := Quoted.Decode(`Value: "LP803448".`)
	if err != nil || name != "LP803448" {
		t.Errorf("quoted: got %q, %v", name, err)
	}
	if got := Quoted.Encode("LP803448"); got != `"LP803448"` {
		t.Errorf("quoted encode: got %q", got)
	}

	parts, err := Colon.Decode("Value: npm1300:2")
	if err != nil {
		t.Fatalf("colon: %v", err)
	}
	if !reflect.DeepEqual(parts, []string{"npm1300", "2"}) {
		t.Errorf("colon: got %v", parts)
	}

	list := ParseQuotedAll("\"A\"\n\"Li-ion 1000mAh\"\nSuccess:")
	if !reflect.DeepEqual(list, []string{"A", "Li-ion 1000mAh"}) {
		t.Errorf("quoted list: got %v", list)
	}

	kv := ParseKeyValues("profile: v=3.91 i=-0.2 t=25")
	if kv["v"] != "3.91" || kv["i"] != "-0.2" || kv["t"] != "25" {
		t.Errorf("key values: got %v", kv)
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	var order []string
	h1 := reg.OnCommand(CommandPattern("npmx pof status", false), func(m Match) {
		order = append(order, "first:"+m.Verb)
	})
	reg.OnCommand(CommandPattern("npmx pof status", false), func(m Match) {
		order = append(order, "second:"+m.Response)
	})
	reg.OnLine(regexp.MustCompile(`^profile: (.*)$`), func(line string, g []string) {
		order = append(order, "line:"+g[1])
	})

	if n := reg.DispatchCommand("npmx pof status set 1", "Success: 1"); n != 2 {
		t.Errorf("dispatched %d, want 2", n)
	}
	if n := reg.DispatchLine("profile: v=1"); n != 1 {
		t.Errorf("dispatched %d, want 1", n)
	}
	want := []string{"first:set", "second:Success: 1", "line:v=1"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("got %v, want %v", order, want)
	}

	h1.Remove()
	h1.Remove()
	if reg.Len() != 2 {
		t.Errorf("Len: got %d, want 2", reg.Len())
	}
	if n := reg.DispatchCommand("npmx pof status get", "Value: 0"); n != 1 {
		t.Errorf("after remove dispatched %d, want 1", n)
	}
}
