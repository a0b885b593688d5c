package intent_test

import (
	"testing"

	"github.com/dquispe/ventavoz/internal/voice/intent"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want intent.Type
	}{
		// Total queries.
		{"cuanto va", intent.TypeQueryTotal},
		{"cuanto es el total", intent.TypeQueryTotal},

		// Cancel, including the remove-word override.
		{"cancelar", intent.TypeCancel},
		{"borra todo", intent.TypeCancel},
		{"elimina todo", intent.TypeCancel},
		{"quita la coca", intent.TypeRemove},

		// Confirm.
		{"listo", intent.TypeConfirm},
		{"eso es todo", intent.TypeConfirm},

		// Remove.
		{"ya no quiero el pan", intent.TypeRemove},
		{"saca el arroz", intent.TypeRemove},

		// Product swap.
		{"cambia la coca por inca kola", intent.TypeChangeProduct},

		// Budget sales — must win over price change.
		{"2 soles de papa", intent.TypeSaleByBudget},
		{"papa por 2 soles", intent.TypeSaleByBudget},
		{"dame 3 soles en limon", intent.TypeSaleByBudget},

		// Price changes.
		{"cambiar precio de arroz a 5 soles", intent.TypeChangePrice},
		{"arroz a 5 soles", intent.TypeChangePrice},
		{"ponle 8 soles al aceite", intent.TypeChangePrice},

		// Generic change without structure.
		{"mejor cambia eso", intent.TypeChange},

		// Explicit sale verbs vs default add.
		{"vender dos cocas", intent.TypeSale},
		{"nueva venta", intent.TypeSale},
		{"dos cocas y un pan", intent.TypeAdd},
		{"agrega una gaseosa", intent.TypeAdd},
		{"medio kilo de arroz", intent.TypeAdd},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := intent.Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePriceChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		wantQuery string
		wantPrice float64
		wantOK    bool
	}{
		{"precio de X a N", "cambiar precio de arroz a 5 soles", "arroz", 5, true},
		{"ponle N al X", "ponle 8 soles al aceite", "aceite", 8, true},
		{"loose form", "arroz a 4.5 soles", "arroz", 4.5, true},
		{"multi item guarded", "dos cocas y arroz a 5 soles", "", 0, false},
		{"no price", "cambiar el arroz", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := intent.ParsePriceChange(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParsePriceChange(%q) ok=%v, want %v", tt.in, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.ProductQuery != tt.wantQuery || got.NewPrice != tt.wantPrice {
				t.Errorf("ParsePriceChange(%q) = %+v, want query=%q price=%v", tt.in, got, tt.wantQuery, tt.wantPrice)
			}
		})
	}
}

func TestParseSaleByBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         string
		wantQuery  string
		wantAmount float64
	}{
		{"soles de X", "2 soles de papa", "papa", 2},
		{"X por soles", "papa por 2 soles", "papa", 2},
		{"dame soles en X", "dame 3 soles en limon", "limon", 3},
		{"articles stripped", "5 soles de la papa amarilla", "papa amarilla", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := intent.ParseSaleByBudget(tt.in)
			if !ok {
				t.Fatalf("ParseSaleByBudget(%q) ok=false", tt.in)
			}
			if got.ProductQuery != tt.wantQuery || got.TargetAmount != tt.wantAmount {
				t.Errorf("ParseSaleByBudget(%q) = %+v, want query=%q amount=%v", tt.in, got, tt.wantQuery, tt.wantAmount)
			}
		})
	}

	if _, ok := intent.ParseSaleByBudget("dos cocas"); ok {
		t.Error("ParseSaleByBudget matched a plain sale")
	}
}

func TestParseProductChange(t *testing.T) {
	t.Parallel()

	got, ok := intent.ParseProductChange("cambia la coca por inca kola")
	if !ok {
		t.Fatal("ParseProductChange ok=false")
	}
	if got.OldQuery != "coca" || got.NewQuery != "inca kola" {
		t.Errorf("ParseProductChange = %+v", got)
	}

	if _, ok := intent.ParseProductChange("dos cocas y un pan"); ok {
		t.Error("ParseProductChange matched a plain sale")
	}
}

func TestParseRemove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"quita la coca", "coca", true},
		{"ya no quiero el pan", "pan", true},
		{"elimina el arroz", "arroz", true},
		{"quita eso", "eso", true},
		{"quitar", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := intent.ParseRemove(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseRemove(%q) ok=%v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseRemove(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
