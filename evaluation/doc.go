// Package evaluation 计算二分类报告（准确率、各类别 precision/recall/f1、
// macro 与 weighted 平均），并写出带时间戳的 CSV 与 *_metrics.json 摘要。
//
// 预测值为 -1 表示无法从模型输出中解析出标签，计算前会被过滤。
package evaluation
