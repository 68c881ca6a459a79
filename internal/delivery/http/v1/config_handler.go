package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"cartsession-backend/internal/domain"
	"cartsession-backend/internal/usecase"
	"cartsession-backend/pkg/cache"
)

type ConfigHandler struct {
	cache cache.CacheService
	calc  *usecase.TotalsCalculator
}

func NewConfigHandler(cache cache.CacheService, calc *usecase.TotalsCalculator) *ConfigHandler {
	return &ConfigHandler{cache: cache, calc: calc}
}

// GET /api/v1/config/enums
func (h *ConfigHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	// Cache Key
	cacheKey := "system:config:enums"

	// Check Cache
	if val, found := h.cache.Get(cacheKey); found {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		json.NewEncoder(w).Encode(val)
		return
	}

	response := map[string]interface{}{
		"cartModes":     domain.CartModes,
		"discountTypes": domain.DiscountTypes,
		"shippingTiers": h.calc.Tiers(),
	}

	h.cache.Set(cacheKey, response, 1*time.Hour)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	json.NewEncoder(w).Encode(response)
}
