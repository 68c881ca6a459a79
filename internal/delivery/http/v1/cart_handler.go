package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cartsession-backend/internal/domain"
	"cartsession-backend/internal/usecase"
	"cartsession-backend/pkg/utils"

	"github.com/google/uuid"
)

type CartHandler struct {
	sessions *usecase.SessionManager
	signal   domain.SessionSignal
	calc     *usecase.TotalsCalculator
}

func NewCartHandler(sessions *usecase.SessionManager, signal domain.SessionSignal, calc *usecase.TotalsCalculator) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		signal:   signal,
		calc:     calc,
	}
}

const sessionCookieName = "cartSessionId"

// sessionID returns the caller's cart session id, minting one on first
// contact. The cookie identifies the cart session; it is independent of
// the auth token, which identifies the user.
func (h *CartHandler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func userFrom(r *http.Request) *domain.User {
	if user, ok := r.Context().Value(domain.UserContextKey).(*domain.User); ok {
		return user
	}
	return nil
}

// cartView is the uniform response body for every cart endpoint.
type cartView struct {
	Mode         string                 `json:"mode"`
	Items        []domain.CartLineItem  `json:"items"`
	Totals       domain.TotalsBreakdown `json:"totals"`
	ShippingTier string                 `json:"shippingTier"`
	RemoteCartID *string                `json:"remoteCartId"`
}

func (h *CartHandler) view(s *usecase.CartSession, state domain.CartState) cartView {
	return cartView{
		Mode:         state.Mode,
		Items:        state.Items,
		Totals:       s.Totals(),
		ShippingTier: s.ShippingKey(),
		RemoteCartID: state.RemoteCartID,
	}
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) *usecase.CartSession {
	return h.sessions.GetOrCreate(r.Context(), h.sessionID(w, r), userFrom(r))
}

// --- Cart Handlers ---

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	utils.WriteJSON(w, http.StatusOK, h.view(s, s.State()))
}

type addItemReq struct {
	ProductRef string                    `json:"productRef"`
	Quantity   int                       `json:"quantity"`
	Variants   []domain.VariantSelection `json:"variants"`
	Snapshot   domain.ProductSnapshot    `json:"productSnapshot"`
	UnitPrice  *float64                  `json:"unitPrice"`
	SalePrice  *float64                  `json:"salePrice"`
	BasePrice  float64                   `json:"basePrice"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.ProductRef == "" {
		http.Error(w, "productRef required", http.StatusBadRequest)
		return
	}

	s := h.session(w, r)
	state, err := s.AddItem(r.Context(), usecase.AddItemInput{
		ProductRef: req.ProductRef,
		Quantity:   req.Quantity,
		Variants:   req.Variants,
		Snapshot:   req.Snapshot,
		Price: domain.PriceSource{
			ExplicitUnitPrice: req.UnitPrice,
			CurrentPrice:      req.SalePrice,
			BasePrice:         req.BasePrice,
		},
	})
	if err != nil {
		h.writeMutationError(w, r, "AddItem", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.view(s, state))
}

type updateQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	lineID := r.PathValue("lineId")
	if lineID == "" {
		http.Error(w, "Line ID required", http.StatusBadRequest)
		return
	}
	var req updateQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	s := h.session(w, r)
	state, err := s.UpdateQuantity(r.Context(), lineID, req.Quantity)
	if err != nil {
		h.writeMutationError(w, r, "UpdateItem", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.view(s, state))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID := r.PathValue("lineId")
	if lineID == "" {
		http.Error(w, "Line ID required", http.StatusBadRequest)
		return
	}

	s := h.session(w, r)
	state, err := s.RemoveItem(r.Context(), lineID)
	if err != nil {
		h.writeMutationError(w, r, "RemoveItem", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.view(s, state))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	state, err := s.Clear(r.Context())
	if err != nil {
		h.writeMutationError(w, r, "ClearCart", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.view(s, state))
}

type applyDiscountReq struct {
	Code string `json:"code"`
}

func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req applyDiscountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "Discount code required", http.StatusBadRequest)
		return
	}

	s := h.session(w, r)
	state, err := s.ApplyDiscount(r.Context(), req.Code)
	if err != nil {
		h.writeMutationError(w, r, "ApplyDiscount", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.view(s, state))
}

type selectShippingReq struct {
	Tier string `json:"tier"`
}

func (h *CartHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	var req selectShippingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tier == "" {
		http.Error(w, "Shipping tier required", http.StatusBadRequest)
		return
	}

	s := h.session(w, r)
	state, err := s.SelectShipping(req.Tier)
	if err != nil {
		h.writeMutationError(w, r, "SelectShipping", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.view(s, state))
}

// --- Session Transitions ---

// Login is called by the frontend right after a successful
// login/registration, never on a page-reload session restore. That
// distinction is exactly what the freshness guard keys on.
func (h *CartHandler) Login(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := h.sessionID(w, r)
	if err := h.signal.MarkFreshLogin(r.Context(), sessionID); err != nil {
		// Guard storage trouble degrades to a no-merge login, not a failure
		slog.Error("Handler: Login - fresh marker not stored", "session_id", sessionID, "error", err)
	}

	s := h.sessions.GetOrCreate(r.Context(), sessionID, user)
	res := s.Login(r.Context(), user)

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cart":        h.view(s, res.Cart),
		"merged":      res.Merged,
		"mergedCount": res.MergedCount,
	})
}

func (h *CartHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	state := s.Logout(r.Context())
	utils.WriteJSON(w, http.StatusOK, h.view(s, state))
}

// --- Error Mapping ---

func (h *CartHandler) writeMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error("Handler: "+op+" failed", "error", err)

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrQuantityLimitExceeded),
		errors.Is(err, domain.ErrUnknownShippingTier),
		errors.Is(err, domain.ErrFreeShippingUnavailable):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDiscountRequiresAuth):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrLineNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMutationInFlight):
		status = http.StatusTooManyRequests
	default:
		var ge *domain.GatewayError
		if errors.As(err, &ge) {
			// Pass the authoritative rejection through as-is
			status = ge.StatusCode
		}
	}

	utils.WriteError(w, status, err.Error())
}
