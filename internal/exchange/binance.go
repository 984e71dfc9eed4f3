package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/skalibog/bfpv/internal/config"
	"github.com/skalibog/bfpv/pkg/models"
)

// SpotPriceProvider источник текущей цены актива
type SpotPriceProvider interface {
	GetSpotPrice(ctx context.Context) (*models.SpotPrice, error)
}

// BinanceClient клиент для получения текущей цены с Binance
type BinanceClient struct {
	spot   *binance.Client
	symbol string
}

// TestnetBaseURL адрес спот testnet Binance
const TestnetBaseURL = "https://testnet.binance.vision"

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.ExchangeConfig) *BinanceClient {
	spotClient := binance.NewClient("", "")

	if cfg.Testnet {
		// Для спот-клиента нужно изменить базовый URL
		spotClient.BaseURL = TestnetBaseURL
	}

	return newBinanceClient(spotClient, cfg.Symbol)
}

func newBinanceClient(spot *binance.Client, symbol string) *BinanceClient {
	return &BinanceClient{
		spot:   spot,
		symbol: symbol,
	}
}

// Symbol возвращает отслеживаемый символ
func (c *BinanceClient) Symbol() string {
	return c.symbol
}

// GetSpotPrice получает текущую цену символа
func (c *BinanceClient) GetSpotPrice(ctx context.Context) (*models.SpotPrice, error) {
	prices, err := c.spot.NewListPricesService().
		Symbol(c.symbol).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения цены: %w", err)
	}

	for _, p := range prices {
		if p.Symbol != c.symbol {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора цены %q: %w", p.Price, err)
		}
		return &models.SpotPrice{
			Symbol:    p.Symbol,
			Price:     price.InexactFloat64(),
			Timestamp: time.Now(),
		}, nil
	}

	return nil, fmt.Errorf("не найдена цена для %s", c.symbol)
}
