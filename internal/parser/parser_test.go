package parser

import "testing"

func TestRegistry_LookupIsCaseAndWhitespaceInsensitive(t *testing.T) {
	r := Default()

	fields, registered, err := r.Parse("  Show   Processes  CPU ", "CPU utilization for five seconds: 5%; one minute: 4%; five minutes: 3%")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !registered {
		t.Fatal("registered = false, want true")
	}
	if fields["cpu_percent_5m"] != float64(3) {
		t.Errorf("cpu_percent_5m = %v, want 3", fields["cpu_percent_5m"])
	}
}

func TestRegistry_UnregisteredCommand(t *testing.T) {
	r := Default()

	fields, registered, err := r.Parse("show interfaces status", "whatever")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if registered {
		t.Error("registered = true for unknown command, want false")
	}
	if fields != nil {
		t.Errorf("fields = %v, want nil", fields)
	}
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register("show env fan", func(string) (map[string]any, error) {
		return map[string]any{"v": float64(1)}, nil
	})
	r.Register("show env fan", func(string) (map[string]any, error) {
		return map[string]any{"v": float64(2)}, nil
	})

	fields, registered, err := r.Parse("show env fan", "")
	if err != nil || !registered {
		t.Fatalf("Parse() = %v, %v", registered, err)
	}
	if fields["v"] != float64(2) {
		t.Errorf("v = %v, want 2 (later registration replaces earlier)", fields["v"])
	}
}
