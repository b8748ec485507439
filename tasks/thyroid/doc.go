// Package thyroid 实现甲状腺化验分类任务。
//
// 数据集是一张 CSV，每行一条化验记录，按 subject_id 分组为一个样本（病人）。
// 同一病人的记录按 charttime 划分为多个化验会话，渲染为文本块后作为搜索输入。
// 搜索固定 3 步：逐项判断 HIGH/LOW/NORMAL → 异常含义 → 输出 1/0 诊断。
package thyroid
