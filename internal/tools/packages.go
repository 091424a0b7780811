package tools

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrValidation indicates tool input that was rejected before anything ran.
var ErrValidation = errors.New("invalid tool input")

// validate is the shared validator instance.
var validate = validator.New()

// Package actions accepted by manage_packages.
const (
	ActionInstall   = "install"
	ActionUninstall = "uninstall"
	ActionList      = "list"
)

// PackageAction is a pip operation: Install, Uninstall or List.
type PackageAction interface {
	// Name returns the action as accepted on input.
	Name() string
	pipArgs() []string
}

// Install installs a package specifier.
type Install struct{ Package string }

// Uninstall removes a package without prompting.
type Uninstall struct{ Package string }

// List lists installed packages as JSON.
type List struct{}

func (Install) Name() string   { return ActionInstall }
func (Uninstall) Name() string { return ActionUninstall }
func (List) Name() string      { return ActionList }

func (a Install) pipArgs() []string   { return []string{"-m", "pip", "install", a.Package} }
func (a Uninstall) pipArgs() []string { return []string{"-m", "pip", "uninstall", "-y", a.Package} }
func (List) pipArgs() []string        { return []string{"-m", "pip", "list", "--format=json"} }

// Package is one entry of `pip list --format=json`.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// ParsePackageAction validates raw input and returns the matching action.
func ParsePackageAction(in ManagePackagesInput) (PackageAction, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(in, err)
	}

	switch in.Action {
	case ActionInstall:
		return Install{Package: in.Package}, nil
	case ActionUninstall:
		return Uninstall{Package: in.Package}, nil
	default:
		return List{}, nil
	}
}

func validationError(in ManagePackagesInput, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Action":
		return fmt.Errorf("%w: action must be one of install, uninstall, list (got %q)", ErrValidation, in.Action)
	case "Package":
		return fmt.Errorf("%w: package name required for %s action", ErrValidation, in.Action)
	default:
		return fmt.Errorf("%w: %s", ErrValidation, fe.Error())
	}
}
