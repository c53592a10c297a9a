package encoding

import (
	"sync"
	"testing"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"string", "hello world"},
		{"int64", int64(9876543210)},
		{"bool", true},
		{"slice", []string{"created", "edited", "deleted"}},
		{"map", map[string]interface{}{"id": "r1", "ver": 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal(tc.input)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if len(data) == 0 {
				t.Error("Expected non-empty result")
			}
		})
	}
}

func TestUnmarshal_LooseInterfaceDecoding(t *testing.T) {
	in := map[string]interface{}{"id": "r1", "slug": "hello-world"}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out map[string]interface{}
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// Loose decoding keeps strings as strings, not []byte
	if s, ok := out["slug"].(string); !ok || s != "hello-world" {
		t.Errorf("expected string slug, got %T %v", out["slug"], out["slug"])
	}
}

func TestMarshal_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	const goroutines = 50
	const iterations = 200

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				data, err := Marshal(map[string]interface{}{"g": id, "i": j})
				if err != nil {
					t.Errorf("Marshal failed: %v", err)
					return
				}
				var out map[string]interface{}
				if err := Unmarshal(data, &out); err != nil {
					t.Errorf("Unmarshal failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
