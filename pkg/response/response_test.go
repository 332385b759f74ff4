package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess_OmitsErrorAndMeta(t *testing.T) {
	body, err := json.Marshal(Success(map[string]int{"slots": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"slots":1}}`, string(body))
}

func TestPaginated_TotalPages(t *testing.T) {
	tests := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		resp := Paginated([]string{}, 1, tt.perPage, tt.total)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.want, resp.Meta.TotalPages)
	}
}

func TestErrorHelpers(t *testing.T) {
	assert.Equal(t, ErrCodeBadRequest, BadRequest("x").Error.Code)
	assert.Equal(t, ErrCodeNotFound, NotFound("x").Error.Code)
	assert.Equal(t, ErrCodeForbidden, Forbidden("x").Error.Code)
	assert.Equal(t, ErrCodeInternal, InternalError("x").Error.Code)
	assert.Equal(t, ErrCodeRateLimited, TooManyRequests("x").Error.Code)

	resp := ErrorWithDetails(ErrCodeConflict, "dup", "key=k")
	assert.False(t, resp.Success)
	assert.Equal(t, "key=k", resp.Error.Details)
}
