package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationProbe struct {
	PeriodType string `form:"period_type" binding:"omitempty,oneof=custom month"`
	Month      int    `form:"month" binding:"omitempty,min=1,max=12"`
	StartDate  string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	Query      string `form:"query" binding:"required"`
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?period_type=week&month=13&start_date=01.02.2024", nil)

	var probe validationProbe
	err := c.ShouldBindQuery(&probe)
	require.Error(t, err)

	assert.Equal(t, []string{
		"period_type: одно из значений: custom month",
		"month: не больше 12",
		"start_date: дата в формате ГГГГ-ММ-ДД",
		"query: обязательный параметр",
	}, ValidationDetails(err))
}

func TestValidationDetails_PlainError(t *testing.T) {
	assert.Equal(t, []string{"strconv.ParseInt: invalid syntax"}, ValidationDetails(errors.New("strconv.ParseInt: invalid syntax")))
}
