package match

import (
	"fmt"

	"github.com/jankenlabs/jankenchain/core"
)

// Escrow moves tokens between player accounts and the deposit fields on the
// Match record, using the same account-balance primitive the economy module
// uses for plain transfers. Deposits never exist outside a Match, so
// conservation is checkable per match: DepositOne+DepositTwo equals
// Stake × joined players until settlement and 0 afterwards.

// escrowDeposit debits amount from the player's balance. The caller records
// the amount on the Match deposit field for the player's slot.
func escrowDeposit(state core.State, player string, amount uint64) error {
	acc, err := state.GetAccount(player)
	if err != nil {
		return fmt.Errorf("account %q: %w", player, err)
	}
	if acc.Balance < amount {
		return fmt.Errorf("have %d need %d: %w", acc.Balance, amount, ErrInsufficientFunds)
	}
	acc.Balance -= amount
	return state.SetAccount(acc)
}

// escrowRelease credits amount back to a player's balance. Callers must zero
// the corresponding deposit field in the same transaction.
func escrowRelease(state core.State, player string, amount uint64) error {
	acc, err := state.GetAccount(player)
	if err != nil {
		return fmt.Errorf("account %q: %w", player, err)
	}
	acc.Balance += amount
	return state.SetAccount(acc)
}
