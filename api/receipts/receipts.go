package receipts

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cloudx-io/openescrow/api/utils"
	"github.com/cloudx-io/openescrow/receipt"
)

type Receipts struct {
	signer *receipt.Signer
}

func New(signer *receipt.Signer) *Receipts {
	return &Receipts{signer: signer}
}

func (r *Receipts) handleGetKey(w http.ResponseWriter, req *http.Request) error {
	key, err := r.signer.KeyResponse()
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, key)
}

func (r *Receipts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/key").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(r.handleGetKey))
}
