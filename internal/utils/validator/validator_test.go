package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplan/allocator/internal/utils/validator"
	"github.com/fieldplan/allocator/pkg/dto"
)

func TestValidateFieldArea(t *testing.T) {
	cv := validator.NewValidator()

	t.Run("rejects zero or negative area", func(t *testing.T) {
		err := cv.ValidateFieldArea(0)
		require.Error(t, err)
		var verr *dto.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, "area_m2", verr.Field)
	})

	t.Run("rejects area above the accepted range", func(t *testing.T) {
		err := cv.ValidateFieldArea(2_000_000)
		assert.Error(t, err)
	})

	t.Run("accepts area within range", func(t *testing.T) {
		assert.NoError(t, cv.ValidateFieldArea(5000))
	})
}

func TestValidateObjective(t *testing.T) {
	cv := validator.NewValidator()

	t.Run("rejects empty objective", func(t *testing.T) {
		assert.Error(t, cv.ValidateObjective(""))
	})

	t.Run("rejects unrecognized objective", func(t *testing.T) {
		assert.Error(t, cv.ValidateObjective("minimize_water"))
	})

	t.Run("accepts recognized objectives case-insensitively", func(t *testing.T) {
		assert.NoError(t, cv.ValidateObjective("maximize_profit"))
		assert.NoError(t, cv.ValidateObjective("MINIMIZE_COST"))
	})
}

func TestValidateFraction(t *testing.T) {
	cv := validator.NewValidator()

	t.Run("rejects values outside [0, 1]", func(t *testing.T) {
		assert.Error(t, cv.ValidateFraction(-0.1))
		assert.Error(t, cv.ValidateFraction(1.1))
	})

	t.Run("accepts boundary and interior values", func(t *testing.T) {
		assert.NoError(t, cv.ValidateFraction(0))
		assert.NoError(t, cv.ValidateFraction(1))
		assert.NoError(t, cv.ValidateFraction(0.5))
	})
}

type sampleRequest struct {
	AreaM2    float64 `validate:"required,field_area"`
	Objective string  `validate:"required,objective"`
	Fraction  float64 `validate:"fraction"`
}

func TestValidateStruct(t *testing.T) {
	cv := validator.NewValidator()

	t.Run("passes a fully valid struct", func(t *testing.T) {
		req := sampleRequest{AreaM2: 100, Objective: "maximize_profit", Fraction: 0.2}
		assert.NoError(t, cv.ValidateStruct(req))
	})

	t.Run("wraps validator errors as a dto.ValidationError", func(t *testing.T) {
		req := sampleRequest{AreaM2: -1, Objective: "bogus", Fraction: 5}
		err := cv.ValidateStruct(req)
		require.Error(t, err)

		var verr *dto.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.NotEmpty(t, verr.Message)
	})

	t.Run("rejects a nil struct", func(t *testing.T) {
		assert.Error(t, cv.ValidateStruct(nil))
	})
}
