package taxonomy

import (
	"errors"
	"testing"
)

func TestBuildContractOrder(t *testing.T) {
	got, err := Build(Parts{Brand: "PLUS", Title: "Loki", Category: "Acq", Market: "US", Channel: "ProgDisplay"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got != "PLUS_Loki_Acq_US_ProgDisplay" {
		t.Fatalf("Build() = %q", got)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	parts := []Parts{
		{Brand: "PLUS", Title: "Loki", Category: "Acq", Market: "US", Channel: "ProgDisplay"},
		{Brand: "HULU", Title: "TheBear", Category: "Ret", Market: "CA", Channel: "ProgCTV"},
		{Brand: "ESPN", Title: "Monday_Night", Category: "Eng", Market: "MX", Channel: "YouTube"},
	}
	for _, p := range parts {
		first, err := Build(p)
		if err != nil {
			t.Fatalf("Build(%+v) error = %v", p, err)
		}
		for i := 0; i < 10; i++ {
			again, err := Build(p)
			if err != nil || again != first {
				t.Fatalf("Build(%+v) run %d = %q, %v; want %q", p, i, again, err, first)
			}
		}
		if err := Validate(first); err != nil {
			t.Fatalf("Validate(%q) error = %v", first, err)
		}
	}
}

func TestBuildRejectsBadComponents(t *testing.T) {
	tests := []struct {
		name  string
		parts Parts
		field Field
	}{
		{"empty brand", Parts{Title: "Loki", Category: "Acq", Market: "US", Channel: "ProgDisplay"}, FieldBrand},
		{"space in title", Parts{Brand: "PLUS", Title: "Loki S2", Category: "Acq", Market: "US", Channel: "ProgDisplay"}, FieldTitle},
		{"dash in market", Parts{Brand: "PLUS", Title: "Loki", Category: "Acq", Market: "U-S", Channel: "ProgDisplay"}, FieldMarket},
		{"pipe in channel", Parts{Brand: "PLUS", Title: "Loki", Category: "Acq", Market: "US", Channel: "Prog|Display"}, FieldChannel},
		{"trailing separator", Parts{Brand: "PLUS", Title: "Loki", Category: "Acq_", Market: "US", Channel: "ProgDisplay"}, FieldCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.parts)
			if !errors.Is(err, ErrInvalidReference) {
				t.Fatalf("Build() error = %v, want ErrInvalidReference", err)
			}
			var ire *InvalidReferenceError
			if !errors.As(err, &ire) || ire.Field != tt.field {
				t.Fatalf("Build() error = %#v, want field %s", err, tt.field)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	bad := []string{
		"",
		"PLUS_Loki_Acq_US",
		"PLUS__Loki_Acq_US_ProgDisplay",
		"PLUS|Loki|Acq|US|ProgDisplay",
		"PLUS_Loki_Acq_US_ProgDisplay ",
	}
	for _, s := range bad {
		if err := Validate(s); !errors.Is(err, ErrInvalidReference) {
			t.Fatalf("Validate(%q) error = %v, want ErrInvalidReference", s, err)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Loki":                           "Loki",
		"Guardians of the Galaxy Vol. 3": "GuardiansOfTheGalaxyVol3",
		"the bear":                       "TheBear",
		"  ":                             "",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
