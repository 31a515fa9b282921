package policy

import (
	"fmt"

	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/pkg/types"
)

// BuildBlacklist returns a blacklist of names, or the default blacklist when
// names is nil. An explicitly empty list disables the blacklist.
func BuildBlacklist(names []string) (*types.Blacklist, error) {
	if names == nil {
		return types.NewBlacklist(types.DefaultBlacklist...), nil
	}
	for i, n := range names {
		if n == "" {
			return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig,
				fmt.Sprintf("blacklist entry %d is empty", i), types.ErrEmptyMerchant)
		}
	}
	return types.NewBlacklist(names...), nil
}
