//go:build !linux && !darwin && !windows

package clipboard

import "context"

func NewTyper(mode string) (Typer, error) { return nil, ErrUnsupported }

func ReadSelection(ctx context.Context) (string, error) { return "", ErrUnsupported }

func Verify() (string, error) { return "", ErrUnsupported }
