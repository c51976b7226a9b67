// Package encoding 实现消息内容的解码
//
// 支持 content-encoding 为 gzip、deflate、zstd 的消息体，两种入口：
//
//   - NewDecodingStream：包装一条流式消息，边读边解码并向下游重发
//     解码后的数据块。下游需求量通过 StreamWriter 的阻塞写入自然
//     回传到上游（解码器本身是一个守规矩的生产者）。
//   - DecodeAggregated：对已聚合的消息做一次性解码，返回独立持有
//     内容的副本。
//
// 解码后的头块会移除 content-encoding；流式解码同时移除
// content-length（最终长度未知），聚合解码则改写为解码后的长度。
//
// 头块缺失 content-encoding 或值为 identity 时原样转发；编码不受
// 支持时默认按 identity 透传，WithStrict 则以 ErrContentEncoding
// 失败。解码上限（WithMaxDecodedBytes）用于抵御压缩炸弹，超限以
// ContentTooLargeError 终止。
package encoding
