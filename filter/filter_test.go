package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeCheckAcceptsMatchingEqual(t *testing.T) {
	uuidPath := Path{Kind: PathUuid}
	f := Equal(PathOperand(uuidPath), ParameterOperand(Value{Type: TypeUuid, Uuid: "11111111-1111-1111-1111-111111111111"}))
	assert.NoError(t, TypeCheck(f))
}

func TestTypeCheckRejectsMismatchedEqual(t *testing.T) {
	uuidPath := Path{Kind: PathUuid}
	f := Equal(PathOperand(uuidPath), ParameterOperand(NumberValue(3)))
	err := TypeCheck(f)
	require.Error(t, err)
	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, ErrTypeMismatch, ferr.Kind)
}

func TestTypeCheckRejectsOrderingOnUuid(t *testing.T) {
	uuidPath := Path{Kind: PathUuid}
	f := Greater(PathOperand(uuidPath), ParameterOperand(Value{Type: TypeUuid, Uuid: "x"}))
	err := TypeCheck(f)
	require.Error(t, err)
}

func TestTypeCheckAllowsTimestampOrdering(t *testing.T) {
	f := LessOrEqual(PathOperand(Path{Kind: PathDecisionTime}), ParameterOperand(Value{Type: TypeTimestamp, Timestamp: "2026-01-01T00:00:00Z"}))
	assert.NoError(t, TypeCheck(f))
}

func TestTypeCheckStartsWithRequiresTextLike(t *testing.T) {
	f := StartsWith(PathOperand(Path{Kind: PathDecisionTime}), ParameterOperand(TextValue("2026")))
	err := TypeCheck(f)
	require.Error(t, err)
}

func TestTypeCheckRecursesIntoCombinators(t *testing.T) {
	bad := Greater(PathOperand(Path{Kind: PathUuid}), ParameterOperand(Value{Type: TypeUuid, Uuid: "x"}))
	f := All(
		Equal(PathOperand(Path{Kind: PathWebId}), ParameterOperand(Value{Type: TypeUuid, Uuid: "y"})),
		Not(bad),
	)
	err := TypeCheck(f)
	require.Error(t, err)
}

func TestTypeCheckInRequiresMatchingElementTypes(t *testing.T) {
	f := In(PathOperand(Path{Kind: PathWebId}),
		ParameterOperand(Value{Type: TypeUuid, Uuid: "a"}),
		ParameterOperand(Value{Type: TypeUuid, Uuid: "b"}),
	)
	assert.NoError(t, TypeCheck(f))

	bad := In(PathOperand(Path{Kind: PathWebId}), ParameterOperand(NumberValue(1)))
	assert.Error(t, TypeCheck(bad))
}
