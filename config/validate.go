package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BaSui01/thoughtflow/internal/cache"
	"github.com/BaSui01/thoughtflow/types"
)

// structValidate 处理 validate 标签
var structValidate = validator.New()

// Validate 验证配置：先跑 validate 标签，再做跨字段检查
func (c *Config) Validate() error {
	var errs []string

	if err := structValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Search.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Run.End >= 0 && c.Run.End < c.Run.Start {
		errs = append(errs, fmt.Sprintf("run.end (%d) must not be before run.start (%d)", c.Run.End, c.Run.Start))
	}

	switch c.Checkpoint.Backend {
	case "file":
		if c.Checkpoint.Dir == "" {
			errs = append(errs, "checkpoint.dir is required for the file backend")
		}
	case "sqlite", "postgres", "mysql":
		if c.Checkpoint.DSN == "" {
			errs = append(errs, fmt.Sprintf("checkpoint.dsn is required for the %s backend", c.Checkpoint.Backend))
		}
	}
	if err := c.Checkpoint.Pool.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Cache.Backend == cache.BackendRedis && c.Cache.Addr == "" {
		errs = append(errs, "cache.addr is required for the redis backend")
	}

	if c.Dataset.Path == "" {
		errs = append(errs, "dataset.path is required")
	}

	if len(errs) > 0 {
		return types.Errorf(types.ErrInvalidConfig, "config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
