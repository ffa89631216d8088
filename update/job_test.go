package update

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		dir  Direction
		want Kind
	}{
		{name: "fw.bin", dir: Write, want: KindLoadFirmware},
		{name: "x.bin", dir: Write, want: KindLoadFirmware},
		{name: "x.bin", dir: Read, want: KindNone},
		{name: "full.cfg", dir: Write, want: KindLoadFullImage},
		{name: "full.cfg", dir: Read, want: KindSendFullImage},
		{name: "settings.cfg", dir: Write, want: KindLoadConfig},
		{name: "settings.cfg", dir: Read, want: KindSendConfig},
		{name: "cfg.cfg", dir: Read, want: KindSendConfig},
		{name: "FULL.cfg", dir: Write, want: KindLoadConfig},
		{name: "backup.full.cfg", dir: Read, want: KindSendConfig},
		{name: "x.BIN", dir: Write, want: KindNone},
		{name: "readme.txt", dir: Write, want: KindNone},
		{name: "readme.txt", dir: Read, want: KindNone},
		{name: "bin", dir: Write, want: KindNone},
		{name: "", dir: Write, want: KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.dir.String(), func(t *testing.T) {
			if got := Classify(tt.name, tt.dir); got != tt.want {
				t.Errorf("Classify(%q, %s) = %s, want %s", tt.name, tt.dir, got, tt.want)
			}
		})
	}
}

func TestClassifyIndependentOfEngineState(t *testing.T) {
	eng, _ := newTestEngine(t)

	before := Classify("settings.cfg", Write)
	if err := eng.OnOpen("fw.bin", Write); err != nil {
		t.Fatalf("OnOpen() error = %v", err)
	}
	if _, err := eng.OnWriteData([]byte{0xE9}); err != nil {
		t.Fatalf("OnWriteData() error = %v", err)
	}

	if got := Classify("settings.cfg", Write); got != before {
		t.Errorf("Classify changed with engine state: got %s, want %s", got, before)
	}
	if got := Classify("fw.bin", Read); got != KindNone {
		t.Errorf("Classify(fw.bin, read) = %s during a firmware job, want none", got)
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindNone:          "none",
		KindLoadFirmware:  "load-firmware",
		KindLoadConfig:    "load-config",
		KindLoadFullImage: "load-full-image",
		KindSendConfig:    "send-config",
		KindSendFullImage: "send-full-image",
		Kind(42):          "unknown",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
