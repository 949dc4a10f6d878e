// Package upload は撮影画像をリモートの画像ホストへ送り、公開URLを得る
//
// # 仕様
//   - HTTPUploader: multipart/form-data で file と upload_preset を POST し、
//     レスポンスJSONの secure_url を返す
//   - S3Uploader: S3互換ストレージへ PutObject し、公開URLを組み立てる
//   - どちらも1回だけ試行し、リトライはしない
package upload
