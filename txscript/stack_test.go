// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// errStackOp is the error used throughout the stack tests for operations
// that are attempted against too few stack items.
var errStackOp = scriptError(ErrInvalidStackOperation, "")

// TestStack tests that all of the stack operations work as expected.
func TestStack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		before    [][]byte
		operation func(*stack) error
		err       error
		after     [][]byte
	}{
		{
			"noop",
			[][]byte{{1}, {2}, {3}, {4}, {5}},
			func(s *stack) error {
				return nil
			},
			nil,
			[][]byte{{1}, {2}, {3}, {4}, {5}},
		},
		{
			"peek underflow (byte)",
			[][]byte{{1}, {2}, {3}, {4}, {5}},
			func(s *stack) error {
				_, err := s.PeekByteArray(5)
				return err
			},
			errStackOp,
			nil,
		},
		{
			"peek underflow (int)",
			[][]byte{{1}, {2}, {3}, {4}, {5}},
			func(s *stack) error {
				_, err := s.PeekInt(5)
				return err
			},
			errStackOp,
			nil,
		},
		{
			"pop",
			[][]byte{{1}, {2}, {3}, {4}, {5}},
			func(s *stack) error {
				val, err := s.PopByteArray()
				if err != nil {
					return err
				}
				if !bytes.Equal(val, []byte{5}) {
					return errors.New("not equal")
				}
				return err
			},
			nil,
			[][]byte{{1}, {2}, {3}, {4}},
		},
		{
			"pop underflow",
			[][]byte{{1}, {2}, {3}, {4}, {5}},
			func(s *stack) error {
				for i := 0; i < 6; i++ {
					_, err := s.PopByteArray()
					if err != nil {
						return err
					}
				}
				return nil
			},
			errStackOp,
			nil,
		},
		{
			"pop bool negative zero",
			[][]byte{{0, 0, 0x80}},
			func(s *stack) error {
				val, err := s.PopBool()
				if err != nil {
					return err
				}
				if val {
					return errors.New("negative zero is true")
				}
				return nil
			},
			nil,
			nil,
		},
		{
			"pop bool",
			[][]byte{{0, 0x80, 0}},
			func(s *stack) error {
				val, err := s.PopBool()
				if err != nil {
					return err
				}
				if !val {
					return errors.New("0x008000 is false")
				}
				return nil
			},
			nil,
			nil,
		},
		{
			"pop int -1",
			[][]byte{{0x81}},
			func(s *stack) error {
				v, err := s.PopInt()
				if err != nil {
					return err
				}
				if v != -1 {
					return fmt.Errorf("got %d, want -1", v)
				}
				return nil
			},
			nil,
			nil,
		},
		{
			"pop int too big",
			[][]byte{{1, 2, 3, 4, 5}},
			func(s *stack) error {
				_, err := s.PopInt()
				return err
			},
			scriptError(ErrNumberTooBig, ""),
			nil,
		},
		{
			"push int 0",
			nil,
			func(s *stack) error {
				s.PushInt(0)
				return nil
			},
			nil,
			[][]byte{nil},
		},
		{
			"push int 255",
			nil,
			func(s *stack) error {
				s.PushInt(255)
				return nil
			},
			nil,
			[][]byte{{0xff, 0x00}},
		},
		{
			"push bool false",
			nil,
			func(s *stack) error {
				s.PushBool(false)
				return nil
			},
			nil,
			[][]byte{nil},
		},
		{
			"nip top",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.NipN(0)
			},
			nil,
			[][]byte{{1}, {2}},
		},
		{
			"nip middle",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.NipN(1)
			},
			nil,
			[][]byte{{1}, {3}},
		},
		{
			"nip bottom",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.NipN(2)
			},
			nil,
			[][]byte{{2}, {3}},
		},
		{
			"tuck",
			[][]byte{{1}, {2}},
			func(s *stack) error {
				return s.Tuck()
			},
			nil,
			[][]byte{{2}, {1}, {2}},
		},
		{
			"drop 2",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.DropN(2)
			},
			nil,
			[][]byte{{1}},
		},
		{
			"drop 0",
			[][]byte{{1}},
			func(s *stack) error {
				return s.DropN(0)
			},
			errStackOp,
			nil,
		},
		{
			"dup 2",
			[][]byte{{1}, {2}},
			func(s *stack) error {
				return s.DupN(2)
			},
			nil,
			[][]byte{{1}, {2}, {1}, {2}},
		},
		{
			"dup 3 underflow",
			[][]byte{{1}, {2}},
			func(s *stack) error {
				return s.DupN(3)
			},
			errStackOp,
			nil,
		},
		{
			"rot 1",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.RotN(1)
			},
			nil,
			[][]byte{{2}, {3}, {1}},
		},
		{
			"rot 2",
			[][]byte{{1}, {2}, {3}, {4}, {5}, {6}},
			func(s *stack) error {
				return s.RotN(2)
			},
			nil,
			[][]byte{{3}, {4}, {5}, {6}, {1}, {2}},
		},
		{
			"swap 2",
			[][]byte{{1}, {2}, {3}, {4}},
			func(s *stack) error {
				return s.SwapN(2)
			},
			nil,
			[][]byte{{3}, {4}, {1}, {2}},
		},
		{
			"over 2",
			[][]byte{{1}, {2}, {3}, {4}},
			func(s *stack) error {
				return s.OverN(2)
			},
			nil,
			[][]byte{{1}, {2}, {3}, {4}, {1}, {2}},
		},
		{
			"pick 2",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.PickN(2)
			},
			nil,
			[][]byte{{1}, {2}, {3}, {1}},
		},
		{
			"roll 2",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.RollN(2)
			},
			nil,
			[][]byte{{2}, {3}, {1}},
		},
		{
			"roll 3 underflow",
			[][]byte{{1}, {2}, {3}},
			func(s *stack) error {
				return s.RollN(3)
			},
			errStackOp,
			nil,
		},
	}

	for _, test := range tests {
		// Setup the initial stack state and perform the test operation.
		s := stack{}
		for i := range test.before {
			s.PushByteArray(test.before[i])
		}
		err := test.operation(&s)

		// Ensure the error code is of the expected type and the error
		// code matches the value specified in the test instance.
		if e := tstCheckScriptError(err, test.err); e != nil {
			t.Errorf("%s: %v", test.name, e)
			continue
		}
		if err != nil {
			continue
		}

		// Ensure the resulting stack is the expected length.
		if int32(len(test.after)) != s.Depth() {
			t.Errorf("%s: stack depth doesn't match expected: %v "+
				"vs %v", test.name, len(test.after),
				s.Depth())
			continue
		}

		// Ensure all items of the resulting stack are the expected
		// values.
		for i := range test.after {
			val, err := s.PeekByteArray(s.Depth() - int32(i) - 1)
			if err != nil {
				t.Errorf("%s: can't peek %dth stack entry: %v",
					test.name, i, err)
				break
			}

			if !bytes.Equal(val, test.after[i]) {
				t.Errorf("%s: %dth stack entry doesn't match "+
					"expected: %v vs %v", test.name, i, val,
					test.after[i])
				break
			}
		}
	}
}

// TestStackMinimalData ensures numeric reads honor the minimal data setting.
func TestStackMinimalData(t *testing.T) {
	t.Parallel()

	s := stack{verifyMinimalData: true}
	s.PushByteArray([]byte{0x01, 0x00})
	_, err := s.PeekInt(0)
	if !IsErrorCode(err, ErrMinimalData) {
		t.Fatalf("PeekInt: unexpected error %v", err)
	}

	s.verifyMinimalData = false
	v, err := s.PopInt()
	if err != nil || v != 1 {
		t.Fatalf("PopInt: got %d, %v", v, err)
	}
}
