package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// init configures the zerolog globals shared by every Logger: errors wrapped with github.com/pkg/errors are logged
// with their stack, and timestamps are written as UNIX time.
func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
