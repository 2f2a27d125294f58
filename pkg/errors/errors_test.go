package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []Error {
	return []Error{
		INTERNAL_ERROR.New("internal error occurred").
			WithMetadata(map[string]any{
				"component": "ledger",
				"operation": "teleport",
			}),

		UNAUTHORIZED.New("account alice is not authorized").
			WithMetadata(OracleMetadata{Account: "alice"}),

		DUPLICATE_CHAIN_ID.New("chain id already registered").
			WithMetadata(ChainMetadata{ChainID: 2}),

		CHAIN_NOT_FOUND.New("chain not found").
			WithMetadata(ChainMetadata{ChainID: 9}),

		ALREADY_ORACLE.New("account oracle1 is already an oracle").
			WithMetadata(OracleMetadata{Account: "oracle1"}),

		NOT_ORACLE.New("account bob is not an oracle").
			WithMetadata(OracleMetadata{Account: "bob"}),

		BELOW_MINIMUM.New("below minimum").
			WithMetadata(QuantityMetadata{Expected: "100.0000 TLOS", Got: "1.0000 TLOS"}),

		NO_DEPOSIT.New("no deposit found for account carol").
			WithMetadata(DepositMetadata{Account: "carol"}),

		INSUFFICIENT_DEPOSIT.New("insufficient deposit").
			WithMetadata(DepositMetadata{
				Account:   "carol",
				Requested: "500.0000 TLOS",
				Available: "120.0000 TLOS",
			}),

		TELEPORT_NOT_FOUND.New("teleport not found").
			WithMetadata(TeleportMetadata{TeleportID: 42}),

		ALREADY_SIGNED.New("oracle oracle2 already signed").
			WithMetadata(TeleportMetadata{TeleportID: 42}),

		DUPLICATE_SIGNATURE.New("already signed with this signature").
			WithMetadata(TeleportMetadata{TeleportID: 42}),

		ALREADY_CLAIMED.New("Already marked as claimed").
			WithMetadata(TeleportMetadata{TeleportID: 42}),

		RECEIPT_COMPLETED.New("already completed").
			WithMetadata(ReceiptMetadata{ChainID: 2, Index: 7}),

		RECEIPT_OUT_OF_ORDER.New("must confirm previous teleports first").
			WithMetadata(ReceiptMetadata{ChainID: 2, Index: 9}),

		ALREADY_APPROVED.New("Oracle has already approved this teleport").
			WithMetadata(ReceiptMetadata{ChainID: 2, Index: 7}),

		INVALID_FEE.New("fee ratio must be between 0 and 0.2").
			WithMetadata(FeeMetadata{FixedFee: "0.5000 TLOS", VariableRatio: "0.3"}),

		RESOURCE_EXCEEDED.New("daily resource cap reached").
			WithMetadata(map[string]any{"cap": "5.0000 EOS"}),
	}
}

func TestErrorFixtures(t *testing.T) {
	fixtures := generateErrorFixtures()

	for _, err := range fixtures {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())
		require.NotEmpty(t, err.CodeName())
		require.NotEmpty(t, err.Message())
		require.NotContains(t, err.Message(), err.CodeName())
	}
}

func TestErrorCategory(t *testing.T) {
	require.Equal(
		t, CategoryUnauthorized, UNAUTHORIZED.New("not authorized").Category(),
	)
	require.Equal(
		t, CategoryRejected, ALREADY_CLAIMED.New("Already marked as claimed").Category(),
	)
	require.Equal(
		t, CategoryResourceExceeded, RESOURCE_EXCEEDED.New("cap reached").Category(),
	)
	require.Equal(t, CategoryInternal, INTERNAL_ERROR.New("boom").Category())
}

func TestErrorIs(t *testing.T) {
	err := ALREADY_CLAIMED.New("Already marked as claimed").
		WithMetadata(TeleportMetadata{TeleportID: 1})
	require.True(t, ALREADY_CLAIMED.Is(err))
	require.False(t, TELEPORT_NOT_FOUND.Is(err))
	require.False(t, ALREADY_CLAIMED.Is(nil))
}

func TestErrorMetadata(t *testing.T) {
	err := INSUFFICIENT_DEPOSIT.New("insufficient deposit").
		WithMetadata(DepositMetadata{
			Account:   "carol",
			Requested: "500.0000 TLOS",
			Available: "120.0000 TLOS",
		})

	md := err.Metadata()
	require.Equal(t, "carol", md["account"])
	require.Equal(t, "500.0000 TLOS", md["requested"])
	require.Equal(t, "120.0000 TLOS", md["available"])
}
