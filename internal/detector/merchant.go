package detector

import (
	"fmt"

	"github.com/txnguard/txnguard/internal/partition"
	"github.com/txnguard/txnguard/pkg/types"
)

// Blacklisted flags transactions at a blacklisted merchant, any amount.
type Blacklisted struct {
	List *types.Blacklist
}

func (d *Blacklisted) Name() string { return NameBlacklist }

func (d *Blacklisted) Reason(*types.Transaction) string { return "blacklisted merchant" }

func (d *Blacklisted) Detect(s *partition.UserStream) Mask {
	mask := make(Mask, s.Len())
	for i, tx := range s.Txns {
		mask[i] = d.List.Contains(tx.MerchantName)
	}
	return mask
}

// MerchantThreshold flags transactions strictly above their merchant's limit.
// Merchants without an entry are never flagged.
type MerchantThreshold struct {
	Table *types.ThresholdTable
}

func (d *MerchantThreshold) Name() string { return NameMerchantThreshold }

func (d *MerchantThreshold) Reason(tx *types.Transaction) string {
	return fmt.Sprintf("%s txn > $%s", tx.MerchantName, d.Table.Label(tx.MerchantName))
}

func (d *MerchantThreshold) Detect(s *partition.UserStream) Mask {
	mask := make(Mask, s.Len())
	for i, tx := range s.Txns {
		limit, ok := d.Table.Lookup(tx.MerchantName)
		mask[i] = ok && tx.Amount.GreaterThan(limit)
	}
	return mask
}
