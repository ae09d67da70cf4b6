package domain

// EstimateCache computes the DJ's estimated cachê (earned share) of an
// event's total value. The second return reports whether the percentual
// was usable: out-of-range percentuals yield 0 with known=false, which
// callers must render as "unknown", never as "zero cachê earned".
// No rounding happens here; currency formatting is a presentation concern.
//
// The split does not account for which party received the sinal
// (conta_que_recebeu) — reconciling that is out of scope for now.
func EstimateCache(valorTotal, percentual float64) (float64, bool) {
	if percentual < 0 || percentual > 1 {
		return 0, false
	}
	return valorTotal * percentual, true
}

// EstimateCacheForDJ is EstimateCache for a profile whose percentual may
// be absent. A nil percentual is unknown, same as out-of-range.
func EstimateCacheForDJ(valorTotal float64, percentual *float64) (float64, bool) {
	if percentual == nil {
		return 0, false
	}
	return EstimateCache(valorTotal, *percentual)
}

// StatusVariant is the display variant for a payment status badge.
type StatusVariant string

const (
	VariantDefault     StatusVariant = "default"
	VariantWarning     StatusVariant = "warning"
	VariantSecondary   StatusVariant = "secondary"
	VariantDestructive StatusVariant = "destructive"
	VariantOutline     StatusVariant = "outline"
	VariantUnknown     StatusVariant = "unknown"
)

// StatusBadge pairs a display variant with its label.
type StatusBadge struct {
	Variant StatusVariant `json:"variant"`
	Label   string        `json:"label"`
}

// ClassifyPaymentStatus maps a payment status to its display badge.
// Total over all inputs: unrecognized values get the unknown variant with
// the raw string as label, empty input gets "N/A".
func ClassifyPaymentStatus(status string) StatusBadge {
	switch PaymentStatus(status) {
	case PaymentPendente:
		return StatusBadge{Variant: VariantWarning, Label: "Pendente"}
	case PaymentParcial:
		return StatusBadge{Variant: VariantSecondary, Label: "Parcial"}
	case PaymentPago:
		return StatusBadge{Variant: VariantDefault, Label: "Pago"}
	case PaymentVencido:
		return StatusBadge{Variant: VariantDestructive, Label: "Vencido"}
	case PaymentCancelado:
		return StatusBadge{Variant: VariantOutline, Label: "Cancelado"}
	}
	if status == "" {
		return StatusBadge{Variant: VariantUnknown, Label: "N/A"}
	}
	return StatusBadge{Variant: VariantUnknown, Label: status}
}

// ScheduleRow is one event in the schedule view, annotated with the
// payment badge and, when visible to the caller, the estimated cachê.
type ScheduleRow struct {
	Event        Event       `json:"event"`
	Status       StatusBadge `json:"status"`
	CacheKnown   bool        `json:"cache_known"`
	CacheEstimado float64    `json:"cache_estimado"`
	// CacheDisplay is the currency-formatted estimate ("1200.00"), or
	// "N/A" when the percentual is unknown. Formatting happens at this
	// boundary, not inside the calculator.
	CacheDisplay string `json:"cache_display,omitempty"`
}

// FinanceSummary aggregates event money by payment status.
type FinanceSummary struct {
	TotalEventos       int                       `json:"total_eventos"`
	ValorTotal         float64                   `json:"valor_total"`
	SinalRecebido      float64                   `json:"sinal_recebido"`
	SinalNaAgencia     float64                   `json:"sinal_na_agencia"`
	SinalComDJ         float64                   `json:"sinal_com_dj"`
	SaldoPendente      float64                   `json:"saldo_pendente"`
	CacheTotalEstimado float64                   `json:"cache_total_estimado"`
	PorStatus          map[PaymentStatus]float64 `json:"por_status"`
}
