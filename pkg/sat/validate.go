package sat

import (
	"fmt"

	"satfilter/pkg/filter"
)

// Validate checks every precondition of Execute. It returns nil when the
// state is usable, otherwise a *ValidationError wrapping the cause.
func (f *Filter) Validate(st *State) error {
	if err := validate(st); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func validate(st *State) error {
	if st == nil {
		return ErrNilState
	}
	if err := filter.Validate(&st.State); err != nil {
		return err
	}

	in, out := st.Input.Format, st.Output.Format
	required := RequiredScratchByteSize(st.Input)
	if len(st.Scratch) < required {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrScratchTooSmall, len(st.Scratch), required)
	}
	if !isAligned(st.Scratch) {
		return ErrScratchMisaligned
	}
	if in.Channels() != out.Channels() {
		return fmt.Errorf("%w: %s has %d, %s has %d",
			ErrChannelMismatch, in, in.Channels(), out, out.Channels())
	}
	if out.Class() < in.Class() {
		return fmt.Errorf("%w: %s (%s) into %s (%s)",
			ErrFormatClass, in, in.Class(), out, out.Class())
	}
	return nil
}
