package output

import "testing"

func TestFindPortName(t *testing.T) {
	ports := []string{"Disklavier ENSPIRE", "USB MIDI Interface", "Roland FP-30"}

	tests := []struct {
		name   string
		ports  []string
		filter string
		want   string
		wantOk bool
	}{
		{
			name:   "empty filter picks first port",
			ports:  ports,
			filter: "",
			want:   "Disklavier ENSPIRE",
			wantOk: true,
		},
		{
			name:   "substring match",
			ports:  ports,
			filter: "roland",
			want:   "Roland FP-30",
			wantOk: true,
		},
		{
			name:   "match is case insensitive",
			ports:  ports,
			filter: "DISKLAVIER",
			want:   "Disklavier ENSPIRE",
			wantOk: true,
		},
		{
			name:   "no match",
			ports:  ports,
			filter: "Kawai",
			wantOk: false,
		},
		{
			name:   "empty filter with no ports",
			ports:  nil,
			filter: "",
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findPortName(tt.ports, tt.filter)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		name string
		port string
		want bool
	}{
		{"ALSA through port", "Midi Through Port-0", true},
		{"lowercase through", "midi through port-0", true},
		{"dummy port", "Dummy Output", true},
		{"real piano port", "Disklavier ENSPIRE", false},
		{"through as part of a word is excluded too", "Through Port 14:0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExcluded(tt.port); got != tt.want {
				t.Errorf("isExcluded(%q) = %v, want %v", tt.port, got, tt.want)
			}
		})
	}
}
