package doctor

import (
	"context"
	"errors"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/huddle/internal/core/config"
)

// ConfigCheck validates the loaded configuration and the data directory.
type ConfigCheck struct {
	config *config.Config
}

// NewConfigCheck creates a new configuration check.
func NewConfigCheck(cfg *config.Config) *ConfigCheck {
	return &ConfigCheck{config: cfg}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.config == nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Config loaded",
			Status: StatusFail,
			Detail: "configuration not loaded",
		})
		return result
	}

	if err := c.config.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				label := fe.Field
				if label == "" {
					label = "validation"
				}
				result.Items = append(result.Items, CheckItem{
					Label:  label,
					Status: StatusFail,
					Detail: fe.Err.Error(),
				})
			}
		} else {
			result.Items = append(result.Items, CheckItem{
				Label:  "validation",
				Status: StatusFail,
				Detail: err.Error(),
			})
		}
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "Config valid",
		Status: StatusPass,
	})

	switch info, err := os.Stat(c.config.DataDir); {
	case os.IsNotExist(err):
		result.Items = append(result.Items, CheckItem{
			Label:  "Data directory",
			Status: StatusWarn,
			Detail: c.config.DataDir + " (will be created)",
		})
	case err != nil:
		result.Items = append(result.Items, CheckItem{
			Label:  "Data directory",
			Status: StatusFail,
			Detail: err.Error(),
		})
	case !info.IsDir():
		result.Items = append(result.Items, CheckItem{
			Label:  "Data directory",
			Status: StatusFail,
			Detail: c.config.DataDir + " is not a directory",
		})
	default:
		result.Items = append(result.Items, CheckItem{
			Label:  "Data directory",
			Status: StatusPass,
			Detail: c.config.DataDir,
		})
	}

	return result
}
