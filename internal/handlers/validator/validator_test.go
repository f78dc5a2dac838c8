package validator

import (
	"testing"

	api "github.com/wipeguard/wipeguard/internal/api/v1"
)

func TestCreateJobRequestValidators(t *testing.T) {
	tests := []struct {
		name       string
		form       api.CreateJobRequest
		shouldFail bool
	}{
		{
			name: "validation ok -- device target",
			form: api.CreateJobRequest{
				Target:             "/dev/sdz",
				TargetType:         "device",
				ConfirmationPhrase: "/DEV/SDZ YES",
			},
			shouldFail: false,
		},
		{
			name: "validation ok -- no target type",
			form: api.CreateJobRequest{
				Target:             "D:",
				ConfirmationPhrase: "D: YES",
			},
			shouldFail: false,
		},
		{
			name: "validation ko -- missing target",
			form: api.CreateJobRequest{
				ConfirmationPhrase: "X YES",
			},
			shouldFail: true,
		},
		{
			name: "validation ko -- target is only whitespace",
			form: api.CreateJobRequest{
				Target:             "   ",
				ConfirmationPhrase: "X YES",
			},
			shouldFail: true,
		},
		{
			name: "validation ko -- target contains illegal chars",
			form: api.CreateJobRequest{
				Target:             "/dev/sdz; rm -rf",
				ConfirmationPhrase: "/DEV/SDZ YES",
			},
			shouldFail: true,
		},
		{
			name: "validation ko -- unknown target type",
			form: api.CreateJobRequest{
				Target:             "/dev/sdz",
				TargetType:         "floppy",
				ConfirmationPhrase: "/DEV/SDZ YES",
			},
			shouldFail: true,
		},
		{
			name: "validation ko -- missing confirmation phrase",
			form: api.CreateJobRequest{
				Target: "/dev/sdz",
			},
			shouldFail: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := NewValidator()
			v.Register(NewJobValidationRules()...)

			err := v.Struct(test.form)
			if test.shouldFail && err == nil {
				t.Errorf("expected validation to fail")
			}
			if !test.shouldFail && err != nil {
				t.Errorf("expected validation to pass, got: %s", err)
			}
		})
	}
}
