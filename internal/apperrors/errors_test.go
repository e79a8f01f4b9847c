package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MohsinAliJafery/backend/internal/apperrors"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		exc  *apperrors.Exception
		kind apperrors.Kind
		code int
	}{
		{apperrors.InvalidRequest(), apperrors.KindInvalidRequest, http.StatusBadRequest},
		{apperrors.IntegrityFailure(), apperrors.KindIntegrityFailure, http.StatusUnauthorized},
		{apperrors.NotFound(), apperrors.KindNotFound, http.StatusNotFound},
		{apperrors.Conflict(), apperrors.KindConflict, http.StatusConflict},
		{apperrors.UpstreamFailure(), apperrors.KindUpstreamFailure, http.StatusBadGateway},
		{apperrors.Unexpected(), apperrors.KindUnexpected, http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.kind, c.exc.Kind)
		require.Equal(t, c.code, c.exc.Code)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	root := errors.New("connection reset")
	err := fmt.Errorf("initiate: %w", apperrors.UpstreamFailure(apperrors.WithError(root)))

	require.Equal(t, apperrors.KindUpstreamFailure, apperrors.KindOf(err))
	require.True(t, apperrors.Is(err, apperrors.KindUpstreamFailure))
	require.ErrorIs(t, err, root)
	require.Equal(t, apperrors.KindUnexpected, apperrors.KindOf(root))
	require.False(t, apperrors.Is(nil, apperrors.KindUnexpected))
}

func TestWithMessage(t *testing.T) {
	err := apperrors.InvalidRequest(apperrors.WithMessage("unknown subscription type"))
	require.Equal(t, "unknown subscription type", err.Error())
}
