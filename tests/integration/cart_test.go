//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCart_RequiresAuth(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_InvalidToken(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/cart", "not-a-real-token", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_AddStartsHoldWindow(t *testing.T) {
	t.Cleanup(func() { clearCart(t, shopperToken) })

	p := productBySKU(t, "VTG-0001")

	resp := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if c.TotalItems != 1 {
		t.Errorf("total_items: got %d, want 1", c.TotalItems)
	}
	if c.ExpiresAt == nil {
		t.Error("expires_at not set on first add")
	}
	if c.ExpiresInMinutes <= 0 || c.ExpiresInMinutes > 10 {
		t.Errorf("expires_in_minutes: got %d, want within (0, 10]", c.ExpiresInMinutes)
	}
}

func TestCart_DuplicateAddConflicts(t *testing.T) {
	t.Cleanup(func() { clearCart(t, shopperToken) })

	p := productBySKU(t, "VTG-0002")

	first := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first add: expected 201, got %d", first.StatusCode)
	}

	second := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	defer second.Body.Close()

	if second.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate add: expected 409, got %d", second.StatusCode)
	}
	if body := decodeJSON[errorResponse](t, second); body.Error != "already_in_cart" {
		t.Errorf("error: got %q, want %q", body.Error, "already_in_cart")
	}
}

func TestCart_ReservationBlocksOtherShoppers(t *testing.T) {
	t.Cleanup(func() { clearCart(t, shopperToken) })

	p := productBySKU(t, "VTG-0003")

	resp := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d", resp.StatusCode)
	}

	// The admin session belongs to a different user.
	other := doRequest(t, http.MethodPost, "/api/cart/items", adminToken,
		map[string]string{"product_id": p.ID})
	defer other.Body.Close()

	if other.StatusCode != http.StatusConflict {
		t.Fatalf("other shopper add: expected 409, got %d", other.StatusCode)
	}
	if body := decodeJSON[errorResponse](t, other); body.Error != "unavailable" {
		t.Errorf("error: got %q, want %q", body.Error, "unavailable")
	}

	// The catalog shows the unit as reserved while held.
	if got := productBySKU(t, "VTG-0003").Status; got != "reserved" {
		t.Errorf("catalog status: got %q, want %q", got, "reserved")
	}
}

func TestCart_RemoveReleasesUnit(t *testing.T) {
	p := productBySKU(t, "VTG-0005")

	resp := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d", resp.StatusCode)
	}
	c := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	del := doRequest(t, http.MethodDelete, "/api/cart/items/"+c.Items[0].ID, shopperToken, nil)
	defer del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d", del.StatusCode)
	}

	after := decodeJSON[cartResponse](t, del)
	if after.TotalItems != 0 {
		t.Errorf("total_items: got %d, want 0", after.TotalItems)
	}
	if after.ExpiresAt != nil {
		t.Error("expires_at should clear with the last item")
	}

	if got := productBySKU(t, "VTG-0005").Status; got != "available" {
		t.Errorf("catalog status: got %q, want %q", got, "available")
	}
}

func TestCart_RemoveUnknownItem(t *testing.T) {
	resp := doRequest(t, http.MethodDelete, "/api/cart/items/no-such-item", shopperToken, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCart_ExtendHold(t *testing.T) {
	t.Cleanup(func() { clearCart(t, shopperToken) })

	p := productBySKU(t, "VTG-0006")
	add := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	add.Body.Close()
	if add.StatusCode != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d", add.StatusCode)
	}

	resp := doRequest(t, http.MethodPost, "/api/cart/extend", shopperToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("extend: expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[cartResponse](t, resp)
	if c.ExpiresInMinutes != 10 {
		t.Errorf("expires_in_minutes after extend: got %d, want 10", c.ExpiresInMinutes)
	}
}

func TestCart_ExtendEmptyCart(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/cart/extend", shopperToken, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decodeJSON[errorResponse](t, resp); body.Error != "empty_cart" {
		t.Errorf("error: got %q, want %q", body.Error, "empty_cart")
	}
}
