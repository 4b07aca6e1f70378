package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/feastverse/backend/internal/model"
)

// uploadFileField はmultipartアップロードのフィールド名。
const uploadFileField = "file"

// openUploadedFile はmultipart/form-dataリクエストからアップロードファイルを取り出す。
// サイズ上限の超過は413、それ以外の解析失敗は400を書き込んでfalseを返す。
func openUploadedFile(w http.ResponseWriter, r *http.Request, maxSize int64) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge,
				model.NewInvalidRequestError("ファイルサイズが上限を超えています"))
			return nil, nil, false
		}
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("multipartリクエストの解析に失敗しました"))
		return nil, nil, false
	}

	file, header, err := r.FormFile(uploadFileField)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("fileフィールドがありません"))
		return nil, nil, false
	}

	return file, header, true
}
