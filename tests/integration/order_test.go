//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func validCheckout() checkoutRequest {
	return checkoutRequest{
		ShippingName:    "Ada Lovelace",
		ShippingPhone:   "+44 20 7946 0991",
		ShippingAddress: "12 St James's Square, London",
		PaymentMethod:   "card",
	}
}

func TestCheckout_RequiresAuth(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", "", validCheckout())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", shopperToken, validCheckout())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decodeJSON[errorResponse](t, resp); body.Error != "empty_cart" {
		t.Errorf("error: got %q, want %q", body.Error, "empty_cart")
	}
}

func TestCheckout_Validation(t *testing.T) {
	t.Cleanup(func() { clearCart(t, shopperToken) })

	p := productBySKU(t, "VTG-0001")
	add := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	add.Body.Close()
	if add.StatusCode != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d", add.StatusCode)
	}

	req := validCheckout()
	req.ShippingAddress = ""
	resp := doRequest(t, http.MethodPost, "/api/orders", shopperToken, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decodeJSON[errorResponse](t, resp); body.Error != "validation_error" {
		t.Errorf("error: got %q, want %q", body.Error, "validation_error")
	}
}

func TestCheckout_Success(t *testing.T) {
	jacket := productBySKU(t, "VTG-0001")
	shirt := productBySKU(t, "VTG-0005")

	for _, id := range []string{jacket.ID, shirt.ID} {
		add := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
			map[string]string{"product_id": id})
		add.Body.Close()
		if add.StatusCode != http.StatusCreated {
			t.Fatalf("add %s: expected 201, got %d", id, add.StatusCode)
		}
	}

	resp := doRequest(t, http.MethodPost, "/api/orders", shopperToken, validCheckout())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(o.ID) {
		t.Errorf("order ID %q is not a valid UUID", o.ID)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(o.Items))
	}
	// 48.00 + 34.00, below the 150.00 free shipping threshold.
	if o.TotalAmount != 82 {
		t.Errorf("total_amount: got %v, want 82", o.TotalAmount)
	}
	if o.ShippingFee != 7.5 {
		t.Errorf("shipping_fee: got %v, want 7.5", o.ShippingFee)
	}

	// The cart was consumed and the units are sold.
	cartResp := doRequest(t, http.MethodGet, "/api/cart", shopperToken, nil)
	defer cartResp.Body.Close()
	if c := decodeJSON[cartResponse](t, cartResp); c.TotalItems != 0 {
		t.Errorf("cart after checkout: got %d items, want 0", c.TotalItems)
	}

	get := doRequest(t, http.MethodGet, "/api/products/"+jacket.ID, shopperToken, nil)
	defer get.Body.Close()
	if p := decodeJSON[productResponse](t, get); p.Status != "sold" {
		t.Errorf("product status after checkout: got %q, want %q", p.Status, "sold")
	}

	// The order shows up in the shopper's history but not in anyone else's.
	list := doRequest(t, http.MethodGet, "/api/orders", shopperToken, nil)
	defer list.Body.Close()
	orders := decodeJSON[[]orderResponse](t, list)
	var found bool
	for _, got := range orders {
		if got.ID == o.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("order %s missing from history", o.ID)
	}

	foreign := doRequest(t, http.MethodGet, "/api/orders/"+o.ID, adminToken, nil)
	defer foreign.Body.Close()
	if foreign.StatusCode != http.StatusNotFound {
		t.Errorf("foreign order read: expected 404, got %d", foreign.StatusCode)
	}
}

func TestCheckout_SoldUnitCannotBeReAdded(t *testing.T) {
	// VTG-0001 was sold by TestCheckout_Success; adding it again conflicts.
	p := productBySKU(t, "VTG-0001")
	if p.Status != "sold" {
		t.Skipf("VTG-0001 status is %q, want sold", p.Status)
	}

	resp := doRequest(t, http.MethodPost, "/api/cart/items", shopperToken,
		map[string]string{"product_id": p.ID})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestAdmin_CreateAndHideProduct(t *testing.T) {
	create := doRequest(t, http.MethodPost, "/api/admin/products", adminToken, map[string]any{
		"sku":   "VTG-9001",
		"name":  "Integration Trench Coat",
		"brand": "Burberry",
		"price": "210.00",
		"tags":  []string{"outerwear", "trench"},
	})
	defer create.Body.Close()

	if create.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", create.StatusCode)
	}
	created := decodeJSON[productResponse](t, create)

	hide := doRequest(t, http.MethodPatch, "/api/admin/products/"+created.ID+"/status", adminToken,
		map[string]string{"from": "available", "to": "hidden"})
	defer hide.Body.Close()
	if hide.StatusCode != http.StatusOK {
		t.Fatalf("hide: expected 200, got %d", hide.StatusCode)
	}

	// Hidden units drop out of the public catalog.
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()
	for _, p := range decodeJSON[[]productResponse](t, resp) {
		if p.ID == created.ID {
			t.Errorf("hidden product %s still listed", created.ID)
		}
	}

	// Shopper tokens cannot reach admin routes.
	denied := doRequest(t, http.MethodPost, "/api/admin/products", shopperToken, map[string]any{
		"sku": "VTG-9002", "name": "Nope", "price": "1.00",
	})
	defer denied.Body.Close()
	if denied.StatusCode != http.StatusForbidden {
		t.Errorf("shopper admin access: expected 403, got %d", denied.StatusCode)
	}
}
