// Copyright (c) Thoughtflow Authors.
// Licensed under the MIT License.

/*
包 search 实现面向生成式文本模型的思维树（Tree-of-Thought）广度优先搜索。

# 概述

搜索从只含一个空候选的 Frontier 出发，每一步执行
生成（Generation）→ 评估（Evaluation）→ 选择（Selection），
重复 Task.Steps() 次，最后返回最后一步全部候选中得分最高者以及逐步轨迹。

# 核心接口

  - Generator: 外部生成器，按 prompt 返回 N 条原始补全。
  - Task: 提供步数、停止符、生成 prompt 与值缓存；
    ValueTask / VoteTask / ProposeTask 为可选能力。
  - ValueCache: 评估 prompt → 分数 的记忆化缓存，键为精确 prompt 文本。
  - Method: 可注册的求解方法（bfs、naive、cot、pure_llm），由 MethodRegistry 管理。
  - LabelTask: 单提示分类能力，cot 与 pure_llm 需要。

# 策略

  - 生成：sample（每个父节点采样 N 条续写）/ propose（一次生成按行拆分）
  - 评估：value（独立打分，走缓存）/ vote（整体比较，计票）
  - 选择：greedy（稳定排序取前 K）/ sample（按分数比例有放回抽取 K 个）

# 失败语义

Solver 不做重试也不吞错：生成器或评估阶段的错误直接中止当前条目并返回调用方。
概率选择遇到非正分数和时返回 DEGENERATE_DISTRIBUTION 错误；最后一步没有候选时
Result.Best 为 nil。
*/
package search
