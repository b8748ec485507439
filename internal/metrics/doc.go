// Copyright (c) Thoughtflow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的搜索指标采集能力，覆盖
生成器调用、评估缓存、搜索步骤、评估结果与数据库连接五个维度。

# 概述

Collector 使用 promauto.With 将指标注册在私有 Registry 上，
同一进程可创建多个互不冲突的 Collector。批量运行结束后通过
WriteTextfile 以文本格式导出，供 node_exporter textfile collector 采集。

# 核心类型

  - Collector：实现 search.Observer 与 llm.GenerationRecorder。

# 主要能力

  - RecordGeneration：请求数、延迟与 token 用量。
  - CacheHit / CacheMiss：评估缓存命中率。
  - StepCompleted / SolveCompleted：步骤耗时、候选数与样本结果。
  - RecordEvaluation：准确率与有效预测数。
*/
package metrics
