package options

import "fmt"

func Validate(o *Options) []error {
	var errs []error
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}
	if len(o.RegisterConfig) == 0 {
		errs = append(errs, fmt.Errorf("register-config must not be empty"))
	}

	return errs
}
