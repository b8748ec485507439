// Copyright (c) Thoughtflow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 Thoughtflow 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 文件辅助: WriteFile / ReadLines，基于 t.TempDir
  - 数据工具: MustJSON

# 子包

  - testutil/mocks: ScriptedGenerator（search.Generator，按 prompt 或顺序脚本应答）
    与 MockProvider（llm.Provider，支持顺序响应与错误注入）

# 使用示例

	ctx := testutil.TestContext(t)
	gen := mocks.NewScriptedGenerator().OnPrompt("gen:0:", "A", "B")
	res, err := solver.Solve(ctx, task, 0)
*/
package testutil
