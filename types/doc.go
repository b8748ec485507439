// Copyright (c) Thoughtflow Authors.
// Licensed under the MIT License.

/*
Package types 提供 thoughtflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 search、llm、checkpoint
等上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - 搜索错误码：GENERATION_FAILED、DEGENERATE_DISTRIBUTION、UNSUPPORTED_MODE、INVALID_CONFIG
  - 传输错误码：UPSTREAM_ERROR、RATE_LIMITED、UNAUTHORIZED 等

# 主要能力

  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - errors.Is 按错误码比较，包装后的错误仍可识别
*/
package types
