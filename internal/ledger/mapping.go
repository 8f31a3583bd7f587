package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
)

// AccountMapping holds the default accounts used when documents are posted.
// Exactly one mapping is active at a time.
type AccountMapping struct {
	ID              uuid.UUID
	SalesRevenue    uuid.UUID
	Tax             uuid.UUID
	Receivable      uuid.UUID
	Payable         uuid.UUID
	Cash            uuid.UUID
	Discount        uuid.UUID
	ShippingRevenue uuid.UUID
	IsActive        bool
	CreatedBy       string
	UpdatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type mappingSlot struct {
	field string
	id    uuid.UUID
	types []AccountType
}

func (m AccountMapping) slots() []mappingSlot {
	return []mappingSlot{
		{"sales_revenue", m.SalesRevenue, []AccountType{AccountTypeRevenue}},
		{"tax", m.Tax, []AccountType{AccountTypeLiability}},
		{"receivable", m.Receivable, []AccountType{AccountTypeAsset}},
		{"payable", m.Payable, []AccountType{AccountTypeLiability}},
		{"cash", m.Cash, []AccountType{AccountTypeAsset}},
		{"discount", m.Discount, []AccountType{AccountTypeExpense, AccountTypeRevenue}},
		{"shipping_revenue", m.ShippingRevenue, []AccountType{AccountTypeRevenue}},
	}
}

// AccountIDs returns every account referenced by the mapping.
func (m AccountMapping) AccountIDs() []uuid.UUID {
	slots := m.slots()
	ids := make([]uuid.UUID, 0, len(slots))
	for _, slot := range slots {
		ids = append(ids, slot.id)
	}
	return ids
}

// ValidateMapping checks that every slot references an active posting
// account of a compatible type.
func ValidateMapping(m AccountMapping, accounts map[uuid.UUID]Account) error {
	for _, slot := range m.slots() {
		if slot.id == uuid.Nil {
			return invalid(slot.field, "account required")
		}
		acc, ok := accounts[slot.id]
		if !ok {
			return invalid(slot.field, fmt.Sprintf("unknown account %s", slot.id))
		}
		if acc.IsGroup {
			return invalid(slot.field, fmt.Sprintf("account %s is a group account", acc.Code))
		}
		if !acc.IsActive {
			return invalid(slot.field, fmt.Sprintf("account %s is inactive", acc.Code))
		}
		compatible := false
		for _, t := range slot.types {
			if acc.Type == t {
				compatible = true
				break
			}
		}
		if !compatible {
			return invalid(slot.field, fmt.Sprintf("account %s has incompatible type %s", acc.Code, acc.Type))
		}
	}
	return nil
}

// ActiveMapping returns the mapping currently used for document postings.
func (s *Service) ActiveMapping(ctx context.Context) (AccountMapping, error) {
	var mapping AccountMapping
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		mapping, err = tx.GetActiveMapping(ctx)
		return err
	})
	return mapping, err
}

// ActivateMapping validates m and replaces the active mapping with it.
func (s *Service) ActivateMapping(ctx context.Context, m AccountMapping, actor string) (AccountMapping, error) {
	var stored AccountMapping
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accounts, err := tx.LockAccounts(ctx, sortedIDs(m.AccountIDs()))
		if err != nil {
			return err
		}
		if err := ValidateMapping(m, accounts); err != nil {
			return err
		}
		if err := tx.DeactivateMappings(ctx, actor); err != nil {
			return err
		}
		m.ID = uuid.New()
		m.IsActive = true
		m.CreatedBy = actor
		m.UpdatedBy = actor
		stored, err = tx.InsertMapping(ctx, m)
		return err
	})
	if err != nil {
		return AccountMapping{}, err
	}
	s.record(ctx, audit.Log{
		Actor:    actor,
		Action:   "mapping.activate",
		Entity:   "account_mapping",
		EntityID: stored.ID.String(),
	})
	return stored, nil
}
