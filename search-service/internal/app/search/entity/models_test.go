package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFilterValueRecord_ToFilterValue(t *testing.T) {
	cases := []struct {
		name    string
		record  FilterValueRecord
		want    ValueSpec
		wantErr bool
	}{
		{
			name:   "discrete",
			record: FilterValueRecord{ID: 1, DescriptionID: 100, PossibleValue: ptr("Red")},
			want:   Discrete{Value: "Red"},
		},
		{
			name:   "ranged",
			record: FilterValueRecord{ID: 3, DescriptionID: 101, IsRanged: true, MinValue: ptr(10.0), MaxValue: ptr(20.0)},
			want:   Ranged{Min: 10, Max: 20},
		},
		{
			name:   "degenerate range",
			record: FilterValueRecord{IsRanged: true, MinValue: ptr(5.0), MaxValue: ptr(5.0)},
			want:   Ranged{Min: 5, Max: 5},
		},
		{name: "discrete without value", record: FilterValueRecord{}, wantErr: true},
		{name: "discrete with bounds", record: FilterValueRecord{PossibleValue: ptr("Red"), MinValue: ptr(1.0)}, wantErr: true},
		{name: "ranged without max", record: FilterValueRecord{IsRanged: true, MinValue: ptr(1.0)}, wantErr: true},
		{name: "ranged min above max", record: FilterValueRecord{IsRanged: true, MinValue: ptr(3.0), MaxValue: ptr(1.0)}, wantErr: true},
		{name: "ranged with possible value", record: FilterValueRecord{IsRanged: true, PossibleValue: ptr("x"), MinValue: ptr(1.0), MaxValue: ptr(2.0)}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fv, err := tc.record.ToFilterValue()

			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValueSpec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, fv.Spec)
			assert.Equal(t, tc.record.ID, fv.ID)
			assert.Equal(t, tc.record.DescriptionID, fv.DescriptionID)
		})
	}
}

func TestRanged_ContainsIsInclusive(t *testing.T) {
	r := Ranged{Min: 10, Max: 20}

	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(15.5))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(9.99))
	assert.False(t, r.Contains(20.01))
}

func TestFilterValue_JSONShape(t *testing.T) {
	// Arrange
	ranged := FilterValue{ID: 3, DescriptionID: 101, Spec: Ranged{Min: 10, Max: 20}}

	// Act
	data, err := json.Marshal(ranged)
	require.NoError(t, err)

	// Assert
	assert.JSONEq(t, `{"id":3,"description_id":101,"is_ranged":true,"min_value":10,"max_value":20}`, string(data))

	var decoded FilterValue
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.IsRanged())
	assert.Equal(t, ranged, decoded)
}

func TestFilterValue_UnmarshalRejectsMixedVariant(t *testing.T) {
	var fv FilterValue

	err := json.Unmarshal([]byte(`{"id":1,"description_id":100,"possible_value":"Red","min_value":1}`), &fv)

	assert.ErrorIs(t, err, ErrInvalidValueSpec)
}

func TestFilterValueRequest_Spec(t *testing.T) {
	spec, err := FilterValueRequest{DescriptionID: 100, PossibleValue: ptr("Blue")}.Spec()
	require.NoError(t, err)
	assert.Equal(t, ValueKindDiscrete, spec.Kind())

	_, err = FilterValueRequest{DescriptionID: 100, IsRanged: true}.Spec()
	assert.ErrorIs(t, err, ErrInvalidValueSpec)
}

func TestFilterValueRequest_Spec_RejectsBlankPossibleValue(t *testing.T) {
	for _, value := range []string{"", "   ", "\t"} {
		_, err := FilterValueRequest{DescriptionID: 100, PossibleValue: ptr(value)}.Spec()

		assert.ErrorIs(t, err, ErrInvalidValueSpec, "possible_value %q", value)
	}
}
