package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kyzma-platform/kyzmainvest-bot/models"
)

var slotSymbols = []string{"🍒", "🍋", "🍊", "🍇", "💎", "7️⃣"}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

type gamesService struct {
	uowFactory   UnitOfWorkFactory
	farmCooldown time.Duration
	taxRate      float64
	treasuryID   int64
}

// NewGamesService creates a new minigame service
func NewGamesService(uowFactory UnitOfWorkFactory, farmCooldown time.Duration, taxRate float64, treasuryID int64) GamesService {
	return &gamesService{
		uowFactory:   uowFactory,
		farmCooldown: farmCooldown,
		taxRate:      taxRate,
		treasuryID:   treasuryID,
	}
}

// Farm awards a small coin drop once per cooldown period. A tenth of farms
// hit the rare drop of 50 coins.
func (s *gamesService) Farm(ctx context.Context, userID int64) (*models.FarmResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
	}

	now := time.Now().UTC()
	if elapsed := now.Sub(account.LastFarmTime); elapsed < s.farmCooldown {
		return nil, &CooldownError{Remaining: s.farmCooldown - elapsed}
	}

	result := &models.FarmResult{}
	if rand.Float64() < 0.10 {
		result.Rare = true
		result.Coins = 50
	} else {
		result.Coins = 5 + rand.Int63n(26)
	}

	updated, err := adjustBalanceTx(ctx, uow, account, result.Coins, models.TransactionTypeFarm, map[string]any{
		"rare": result.Rare,
	})
	if err != nil {
		return nil, err
	}
	if err := uow.AccountRepository().SetLastFarmTime(ctx, userID, now); err != nil {
		return nil, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	result.NewBalance = updated.Balance
	return result, nil
}

// Slots spins the machine. One spin in five lands a matching triple; a
// matched triple pays the 250 coin jackpot one time in twenty, otherwise
// 15 to 40 coins. A losing spin costs 10 to 25 coins and may push the
// balance negative. Jackpots are taxed into the treasury.
func (s *gamesService) Slots(ctx context.Context, userID int64) (*models.SlotsResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
	}
	if account.Balance <= 0 {
		return nil, fmt.Errorf("%w: balance must be positive to play", ErrInsufficientBalance)
	}

	result := &models.SlotsResult{}
	if rand.Float64() < 0.20 {
		symbol := slotSymbols[rand.Intn(len(slotSymbols))]
		result.Reels = [3]string{symbol, symbol, symbol}
	} else {
		for i := range result.Reels {
			result.Reels[i] = slotSymbols[rand.Intn(len(slotSymbols))]
		}
	}
	result.Won = result.Reels[0] == result.Reels[1] && result.Reels[1] == result.Reels[2]

	var delta int64
	if result.Won {
		if rand.Float64() < 0.05 {
			result.Jackpot = true
			result.WinAmount = 250
		} else {
			result.WinAmount = 15 + rand.Int63n(26)
		}
		delta = result.WinAmount
		if result.Jackpot {
			tax, err := applyTaxTx(ctx, uow, result.WinAmount, s.taxRate, s.treasuryID)
			if err != nil {
				return nil, err
			}
			result.TaxPaid = tax.Tax
			delta = tax.Net
		}
	} else {
		result.LossAmount = 10 + rand.Int63n(16)
		delta = -result.LossAmount
	}

	updated, err := adjustBalanceTx(ctx, uow, account, delta, models.TransactionTypeSlots, map[string]any{
		"reels":   result.Reels[0] + result.Reels[1] + result.Reels[2],
		"won":     result.Won,
		"jackpot": result.Jackpot,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	result.NewBalance = updated.Balance
	return result, nil
}

// Roulette resolves a red, black, or straight number bet. Red and black pay
// even money; a number hit pays 35 to 1 and is taxed into the treasury.
func (s *gamesService) Roulette(ctx context.Context, userID int64, stake int64, bet string) (*models.RouletteResult, error) {
	kind, pickedNumber, err := parseRouletteBet(bet)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
	}
	if stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidAmount)
	}
	if stake > account.Balance {
		return nil, fmt.Errorf("%w: stake %d exceeds balance %d", ErrInsufficientBalance, stake, account.Balance)
	}

	result := &models.RouletteResult{Number: rand.Intn(37)}
	result.Color = rouletteColor(result.Number)

	switch kind {
	case models.RouletteBetRed:
		result.Won = result.Color == "red"
	case models.RouletteBetBlack:
		result.Won = result.Color == "black"
	case models.RouletteBetNumber:
		result.Won = result.Number == pickedNumber
	}

	var delta int64
	if result.Won {
		if kind == models.RouletteBetNumber {
			result.Payout = stake * 35
			tax, err := applyTaxTx(ctx, uow, result.Payout, s.taxRate, s.treasuryID)
			if err != nil {
				return nil, err
			}
			result.TaxPaid = tax.Tax
			delta = tax.Net
		} else {
			result.Payout = stake
			delta = stake
		}
	} else {
		delta = -stake
	}

	updated, err := adjustBalanceTx(ctx, uow, account, delta, models.TransactionTypeRoulette, map[string]any{
		"bet":    bet,
		"number": result.Number,
		"color":  result.Color,
		"stake":  stake,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	result.NewBalance = updated.Balance
	return result, nil
}

func parseRouletteBet(bet string) (models.RouletteBetKind, int, error) {
	switch bet {
	case "red":
		return models.RouletteBetRed, 0, nil
	case "black":
		return models.RouletteBetBlack, 0, nil
	}
	var number int
	if _, err := fmt.Sscanf(bet, "%d", &number); err != nil || number < 0 || number > 36 {
		return "", 0, fmt.Errorf("%w: bet must be red, black, or a number 0-36", ErrInvalidAmount)
	}
	return models.RouletteBetNumber, number, nil
}

func rouletteColor(number int) string {
	if number == 0 {
		return "green"
	}
	if redNumbers[number] {
		return "red"
	}
	return "black"
}
