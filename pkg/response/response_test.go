package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestInternalServerErrors_WrapsAllErrors(t *testing.T) {
	c, rec := newTestContext()

	errs := []string{"store write failed", "cache unreachable"}
	if err := InternalServerErrors(c, errs); err != nil {
		t.Fatalf("InternalServerErrors returned error: %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body.Success {
		t.Errorf("expected Success=false")
	}
	if len(body.Errors) != 2 {
		t.Fatalf("expected 2 errors in list, got %d", len(body.Errors))
	}
}

func TestInternalServerError_SingleErrorInList(t *testing.T) {
	c, rec := newTestContext()

	if err := InternalServerError(c, errors.New("boom")); err != nil {
		t.Fatalf("InternalServerError returned error: %v", err)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if len(body.Errors) != 1 || body.Errors[0] != "boom" {
		t.Fatalf("expected errors=[boom], got %v", body.Errors)
	}
}

func TestPaginated_ComputesTotalPages(t *testing.T) {
	c, rec := newTestContext()

	if err := Paginated(c, []string{"a", "b"}, 1, 20, 45); err != nil {
		t.Fatalf("Paginated returned error: %v", err)
	}

	var body PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body.TotalPages != 3 {
		t.Fatalf("expected 3 total pages for 45 rows at 20/page, got %d", body.TotalPages)
	}
	if body.TotalCount != 45 {
		t.Fatalf("expected totalCount=45, got %d", body.TotalCount)
	}
}
