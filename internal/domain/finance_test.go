package domain_test

import (
	"testing"

	"github.com/vibra/booking-console-go/internal/domain"
)

func TestEstimateCache(t *testing.T) {
	tests := []struct {
		name       string
		valorTotal float64
		percentual float64
		want       float64
		wantKnown  bool
	}{
		{"half share", 1000, 0.5, 500, true},
		{"full share", 1000, 1, 1000, true},
		{"zero share", 1000, 0, 0, true},
		{"above range", 1000, 1.5, 0, false},
		{"negative", 1000, -0.1, 0, false},
		{"zero total", 0, 0.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := domain.EstimateCache(tt.valorTotal, tt.percentual)
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if known != tt.wantKnown {
				t.Errorf("expected known=%v, got %v", tt.wantKnown, known)
			}
		})
	}
}

func TestEstimateCacheForDJ_AbsentPercentual(t *testing.T) {
	got, known := domain.EstimateCacheForDJ(1000, nil)
	if got != 0 {
		t.Errorf("expected 0 for absent percentual, got %v", got)
	}
	if known {
		t.Error("expected known=false for absent percentual")
	}
}

func TestEstimateCacheForDJ_Present(t *testing.T) {
	p := 0.6
	got, known := domain.EstimateCacheForDJ(2000, &p)
	if !known {
		t.Fatal("expected known=true")
	}
	if got != 1200 {
		t.Errorf("expected 1200, got %v", got)
	}
}

func TestClassifyPaymentStatus_KnownStatuses(t *testing.T) {
	tests := []struct {
		status  string
		variant domain.StatusVariant
		label   string
	}{
		{"pendente", domain.VariantWarning, "Pendente"},
		{"parcial", domain.VariantSecondary, "Parcial"},
		{"pago", domain.VariantDefault, "Pago"},
		{"vencido", domain.VariantDestructive, "Vencido"},
		{"cancelado", domain.VariantOutline, "Cancelado"},
	}

	for _, tt := range tests {
		badge := domain.ClassifyPaymentStatus(tt.status)
		if badge.Variant != tt.variant {
			t.Errorf("%s: expected variant %s, got %s", tt.status, tt.variant, badge.Variant)
		}
		if badge.Label != tt.label {
			t.Errorf("%s: expected label %s, got %s", tt.status, tt.label, badge.Label)
		}
	}
}

func TestClassifyPaymentStatus_Unrecognized(t *testing.T) {
	badge := domain.ClassifyPaymentStatus("xyz")
	if badge.Variant != domain.VariantUnknown {
		t.Errorf("expected unknown variant, got %s", badge.Variant)
	}
	if badge.Label != "xyz" {
		t.Errorf("expected raw string as label, got %s", badge.Label)
	}
}

func TestClassifyPaymentStatus_Empty(t *testing.T) {
	badge := domain.ClassifyPaymentStatus("")
	if badge.Variant != domain.VariantUnknown {
		t.Errorf("expected unknown variant, got %s", badge.Variant)
	}
	if badge.Label != "N/A" {
		t.Errorf("expected 'N/A', got %s", badge.Label)
	}
}

func TestEventValidate(t *testing.T) {
	base := func() domain.Event {
		return domain.Event{
			NomeEvento:      "Festa Na Laje",
			DJID:            "dj-1",
			ValorTotal:      2000,
			ValorSinal:      500,
			ContaQueRecebeu: domain.ReceivedByAgencia,
		}
	}

	ev := base()
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	ev = base()
	ev.ValorSinal = 3000
	if err := ev.Validate(); err == nil {
		t.Error("expected error when sinal exceeds total")
	}

	ev = base()
	ev.DJID = ""
	if err := ev.Validate(); err == nil {
		t.Error("expected error for missing dj_id")
	}

	ev = base()
	ev.ContaQueRecebeu = "banco"
	if err := ev.Validate(); err == nil {
		t.Error("expected error for invalid conta_que_recebeu")
	}
}
