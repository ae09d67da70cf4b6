package domain

import "time"

// PaymentStatus is the payment state of a booked event.
type PaymentStatus string

const (
	PaymentPendente  PaymentStatus = "pendente"
	PaymentParcial   PaymentStatus = "parcial"
	PaymentPago      PaymentStatus = "pago"
	PaymentVencido   PaymentStatus = "vencido"
	PaymentCancelado PaymentStatus = "cancelado"
)

// ReceivingAccount identifies which party received the deposit (sinal).
type ReceivingAccount string

const (
	ReceivedByAgencia ReceivingAccount = "agencia"
	ReceivedByDJ      ReceivingAccount = "dj"
)

// PaymentProof is a receipt attached to an event, ordered by upload time.
type PaymentProof struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Event is a booked gig owned by the agency. Exactly one DJ is assigned.
type Event struct {
	ID                 string           `json:"id"`
	NomeEvento         string           `json:"nome_evento"`
	DataEvento         time.Time        `json:"data_evento"`
	Local              string           `json:"local"`
	ContratanteNome    string           `json:"contratante_nome"`
	ContratanteContato string           `json:"contratante_contato,omitempty"`
	ValorTotal         float64          `json:"valor_total"`
	ValorSinal         float64          `json:"valor_sinal"`
	DJCosts            float64          `json:"dj_costs"`
	ContaQueRecebeu    ReceivingAccount `json:"conta_que_recebeu"`
	StatusPagamento    PaymentStatus    `json:"status_pagamento"`
	DJID               string           `json:"dj_id"`
	DJNome             string           `json:"dj_nome"`
	PaymentProofs      []PaymentProof   `json:"payment_proofs,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          *time.Time       `json:"updated_at,omitempty"`
}

// Validate checks the event's money invariants and required fields.
func (e *Event) Validate() error {
	if e.NomeEvento == "" {
		return &ErrValidation{Field: "nome_evento", Message: "Nome do evento é obrigatório"}
	}
	if e.DJID == "" {
		return &ErrValidation{Field: "dj_id", Message: "Evento precisa de um DJ atribuído"}
	}
	if e.ValorTotal < 0 {
		return &ErrValidation{Field: "valor_total", Message: "Valor total não pode ser negativo"}
	}
	if e.ValorSinal < 0 {
		return &ErrValidation{Field: "valor_sinal", Message: "Valor do sinal não pode ser negativo"}
	}
	if e.ValorSinal > e.ValorTotal {
		return &ErrValidation{Field: "valor_sinal", Message: "Sinal não pode exceder o valor total"}
	}
	if e.DJCosts < 0 {
		return &ErrValidation{Field: "dj_costs", Message: "Custos do DJ não podem ser negativos"}
	}
	if e.ContaQueRecebeu != ReceivedByAgencia && e.ContaQueRecebeu != ReceivedByDJ {
		return &ErrValidation{Field: "conta_que_recebeu", Message: "Conta deve ser 'agencia' ou 'dj'"}
	}
	return nil
}

// EventFilter narrows event listings.
type EventFilter struct {
	DJID            string
	StatusPagamento PaymentStatus
	From            time.Time
	To              time.Time
}
