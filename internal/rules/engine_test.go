package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"smartctlexporter/internal/blockdev"
)

func fakeDevice(name string) blockdev.BlockDevice {
	return blockdev.BlockDevice{Name: name, Type: blockdev.TypeDisk}
}

// TestProcess_Fixtures runs every testdata/*.json document through the
// default engine and compares against the sibling .expected file.
func TestProcess_Fixtures(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no fixtures found in testdata")
	}

	engine := DefaultEngine()
	for _, file := range files {
		file := file
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			if err != nil {
				t.Fatalf("read fixture: %v", err)
			}
			doc, err := ParseDocument(data)
			if err != nil {
				t.Fatalf("fixture is not valid JSON: %v", err)
			}

			raw, err := os.ReadFile(strings.TrimSuffix(file, ".json") + ".expected")
			if err != nil {
				t.Fatalf("read expected result: %v", err)
			}
			want, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
			if err != nil {
				t.Fatalf("expected file must only contain an integer: %v", err)
			}

			got, err := engine.Process(fakeDevice(filepath.Base(file)), doc)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if got != want {
				t.Errorf("Process() = %d, want %d", got, want)
			}
		})
	}
}

func TestProcess_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int64
	}{
		{"nvme health log", `{"nvme_smart_health_information_log": {"temperature": 34}}`, 34},
		{"temperature node", `{"temperature": {"current": 41}}`, 41},
		{"ata airflow", `{"ata_smart_attributes": {"table": [{"name": "Reallocated_Sector_Ct", "raw": {"value": 0}}, {"name": "Airflow_Temperature_Cel", "raw": {"value": 29}}]}}`, 29},
		{"negative reading", `{"temperature": {"current": -5}}`, -5},
	}
	engine := DefaultEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Process(fakeDevice("sda"), MustParse(tt.doc))
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Process() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProcess_FirstMatchWins(t *testing.T) {
	doc := MustParse(`{
		"nvme_smart_health_information_log": {"temperature": 34},
		"temperature": {"current": 41},
		"ata_smart_attributes": {"table": [{"name": "Airflow_Temperature_Cel", "raw": {"value": 29}}]}
	}`)

	got, err := DefaultEngine().Process(fakeDevice("nvme0n1"), doc)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got != 34 {
		t.Errorf("expected the NVMe matcher to win with 34, got %d", got)
	}
}

func TestProcess_LaterMatchersNotConsulted(t *testing.T) {
	var calls []string
	record := func(name string, v int64, ok bool) Matcher {
		return NewMatcherFunc(name, func(blockdev.BlockDevice, Document) (int64, bool) {
			calls = append(calls, name)
			return v, ok
		})
	}

	engine := NewEngine(record("a", 0, false), record("b", 7, true), record("c", 9, true))
	got, err := engine.Process(fakeDevice("sda"), MustParse(`{}`))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if strings.Join(calls, ",") != "a,b" {
		t.Errorf("expected matchers a,b to be called, got %v", calls)
	}
}

func TestProcess_Unsupported(t *testing.T) {
	model, serial := "WDC WD40", "WD-123"
	dev := blockdev.BlockDevice{Name: "sda", Type: blockdev.TypeDisk, Model: &model, Serial: &serial}

	_, err := DefaultEngine().Process(dev, MustParse(`{}`))
	if err == nil {
		t.Fatal("expected unsupported device error")
	}
	if !errors.Is(err, ErrUnsupportedDevice) {
		t.Errorf("expected errors.Is(err, ErrUnsupportedDevice), got %v", err)
	}
	var unsupported *UnsupportedDeviceError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedDeviceError, got %T", err)
	}
	if unsupported.Signature != "WDC WD40_WD-123" {
		t.Errorf("unexpected signature %q", unsupported.Signature)
	}
	if !strings.Contains(err.Error(), "WDC WD40_WD-123") {
		t.Errorf("error message should name the device: %q", err.Error())
	}
}

// TestProcess_MalformedDocumentsAreUnsupported feeds shapes that must fall
// through every matcher without panicking.
func TestProcess_MalformedDocumentsAreUnsupported(t *testing.T) {
	docs := []string{
		`{}`,
		`[]`,
		`null`,
		`42`,
		`"temperature"`,
		`true`,
		`{"nvme_smart_health_information_log": null}`,
		`{"nvme_smart_health_information_log": [34]}`,
		`{"nvme_smart_health_information_log": {"temperature": "34"}}`,
		`{"nvme_smart_health_information_log": {"temperature": 34.5}}`,
		`{"nvme_smart_health_information_log": {"temperature": 1e400}}`,
		`{"temperature": 41}`,
		`{"temperature": {"current": null}}`,
		`{"temperature": {"current": {"value": 41}}}`,
		`{"temperature": {"current": 99999999999999999999}}`,
		`{"ata_smart_attributes": null}`,
		`{"ata_smart_attributes": {"table": {}}}`,
		`{"ata_smart_attributes": {"table": "none"}}`,
		`{"ata_smart_attributes": {"table": [null, 1, "x", []]}}`,
		`{"ata_smart_attributes": {"table": [{"name": 190, "raw": {"value": 29}}]}}`,
		`{"ata_smart_attributes": {"table": [{"name": "Airflow_Temperature_Cel"}]}}`,
		`{"ata_smart_attributes": {"table": [{"name": "Airflow_Temperature_Cel", "raw": 29}]}}`,
		`{"ata_smart_attributes": {"table": [{"name": "Airflow_Temperature_Cel", "raw": {"value": "29"}}]}}`,
		`{"ata_smart_attributes": {"table": [{"name": "airflow_temperature_cel", "raw": {"value": 29}}]}}`,
		`{"ata_smart_attributes": {"table": [{"name": "Temperature_Celsius", "raw": {"value": 29}}]}}`,
		`{"a": {"b": {"c": {"d": {"temperature": {"current": 1}}}}}}`,
	}

	engine := DefaultEngine()
	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			got, err := engine.Process(fakeDevice("sdz"), MustParse(doc))
			if !errors.Is(err, ErrUnsupportedDevice) {
				t.Errorf("expected unsupported, got value %d err %v", got, err)
			}
		})
	}
}

// TestATAAirflow_UsesFirstMatchingEntry checks that only the first
// Airflow_Temperature_Cel entry is considered, even when its value is unusable.
func TestATAAirflow_UsesFirstMatchingEntry(t *testing.T) {
	doc := MustParse(`{"ata_smart_attributes": {"table": [
		{"name": "Airflow_Temperature_Cel", "raw": {"value": 31}},
		{"name": "Airflow_Temperature_Cel", "raw": {"value": 45}}
	]}}`)
	got, ok := ATAAirflowTemperature.TryExtract(fakeDevice("sda"), doc)
	if !ok || got != 31 {
		t.Errorf("expected first entry 31, got %d ok=%v", got, ok)
	}

	doc = MustParse(`{"ata_smart_attributes": {"table": [
		{"name": "Airflow_Temperature_Cel", "raw": {"value": "n/a"}},
		{"name": "Airflow_Temperature_Cel", "raw": {"value": 45}}
	]}}`)
	if got, ok := ATAAirflowTemperature.TryExtract(fakeDevice("sda"), doc); ok {
		t.Errorf("expected no match when first entry is unusable, got %d", got)
	}
}

func TestEngine_WithAppendsWithoutMutating(t *testing.T) {
	base := DefaultEngine()
	celsius := NewMatcherFunc("ata_smart_attributes.Temperature_Celsius", func(_ blockdev.BlockDevice, doc Document) (int64, bool) {
		entry := doc.Path("ata_smart_attributes", "table").Find(func(item Document) bool {
			name, ok := item.Get("name").Str()
			return ok && name == "Temperature_Celsius"
		})
		return entry.Path("raw", "value").Int()
	})
	extended := base.With(celsius)

	doc := MustParse(`{"ata_smart_attributes": {"table": [{"name": "Temperature_Celsius", "raw": {"value": 36}}]}}`)

	if _, err := base.Process(fakeDevice("sda"), doc); !errors.Is(err, ErrUnsupportedDevice) {
		t.Errorf("base engine should not know the new matcher, got %v", err)
	}
	got, err := extended.Process(fakeDevice("sda"), doc)
	if err != nil || got != 36 {
		t.Errorf("extended engine: got %d err %v, want 36", got, err)
	}

	if n := len(base.Matchers()); n != 3 {
		t.Errorf("base engine should still have 3 matchers, got %d", n)
	}
	names := extended.Matchers()
	if names[len(names)-1] != "ata_smart_attributes.Temperature_Celsius" {
		t.Errorf("new matcher should be last, got %v", names)
	}
}

func TestDefaultEngine_MatcherOrder(t *testing.T) {
	want := []string{
		"nvme_smart_health_information_log",
		"temperature.current",
		"ata_smart_attributes.Airflow_Temperature_Cel",
	}
	got := DefaultEngine().Matchers()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Matchers() = %v, want %v", got, want)
	}
}

func TestProcess_PanickingMatcherFallsThrough(t *testing.T) {
	panicky := NewMatcherFunc("panicky", func(blockdev.BlockDevice, Document) (int64, bool) {
		var m map[string]int
		m["boom"] = 1
		return 0, true
	})
	engine := NewEngine(panicky, TemperatureNode)

	got, err := engine.Process(fakeDevice("sda"), MustParse(`{"temperature": {"current": 40}}`))
	if err != nil || got != 40 {
		t.Errorf("expected fallback to temperature node, got %d err %v", got, err)
	}
}
