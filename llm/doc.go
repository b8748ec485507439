// Copyright (c) Thoughtflow Authors.
// Licensed under the MIT License.

/*
包 llm 提供统一的大语言模型接入层，并将其适配为搜索所需的文本生成器。

# 概述

本包屏蔽不同模型服务在接口、鉴权与错误语义上的差异，对上层暴露一致的
请求与响应模型。搜索控制器只依赖 search.Generator；[ProviderGenerator]
把任意 [Provider] 包装成该接口。

# 核心接口

  - [Provider]：LLM 提供者接口，提供 Completion / HealthCheck / Name
  - [GenerationRecorder]：生成调用的指标记录接口

# 核心类型

  - [ChatRequest] / [ChatResponse]：聊天请求与响应
  - [HealthStatus]：健康检查状态
  - [Error]：传输层错误，等同于 types.Error

# 生成器

[ProviderGenerator] 对一次 Generate 请求并发发出 N 次补全：

  - 并发度由 errgroup.SetLimit 限制，输出顺序与请求序号一致
  - 客户端限流使用 golang.org/x/time/rate
  - 可重试错误经 retry 子包做指数退避
  - 最终失败统一包装为 GENERATION_FAILED

# 子包

  - providers/openaicompat：OpenAI 兼容 HTTP 客户端（本地 vLLM、V-API）
  - providers/openai：基于 go-openai 的官方 API 客户端
  - providers/ollama：Ollama /api/generate 客户端
  - factory：按名称创建 Provider
  - retry：指数退避重试
  - tokenizer：token 计数
*/
package llm
