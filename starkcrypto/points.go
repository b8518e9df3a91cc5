package starkcrypto

import "math/big"

// Parameters of the Stark curve y^2 = x^3 + alpha*x + beta over the prime
// field of FieldPrime, together with the constant points of the Pedersen
// hash. The hash h(a, b) is the x coordinate of
//
//	shiftPoint + a_low*P1 + a_high*P2 + b_low*P3 + b_high*P4
//
// where x_low is the low 248 bits of x and x_high the remaining high bits.
var (
	// FieldPrime is 2^251 + 17*2^192 + 1.
	FieldPrime, _ = new(big.Int).SetString("800000000000011000000000000000000000000000000000000000000000001", 16)

	curveAlpha = big.NewInt(1)
	curveBeta  = hexToBig("6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89")

	shiftPoint = &point{
		hexToBig("49ee3eba8c1600700ee1b87eb599f16716b0b1022947733551fde4050ca6804"),
		hexToBig("3ca0cfe4b3bc6ddf346d49d06ea0ed34e621062c0e056c1d0405d266e10268a"),
	}
	pedersenPoints = [4]*point{
		{
			hexToBig("234287dcbaffe7f969c748655fca9e58fa8120b6d56eb0c1080d17957ebe47b"),
			hexToBig("3b056f100f96fb21e889527d41f4e39940135dd7a6c94cc6ed0268ee89e5615"),
		},
		{
			hexToBig("4fa56f376c83db33f9dab2656558f3399099ec1de5e3018b7a6932dba8aa378"),
			hexToBig("3fa0984c931c9e38113e0c0e47e4401562761f92a7a23b45168f4e80ff5b54d"),
		},
		{
			hexToBig("4ba4cc166be8dec764910f75b45f74b40c690c74709e90f3aa372f0bd2d6997"),
			hexToBig("40301cf5c1751f4b971e46c4ede85fcac5c59a5ce5ae7c48151f27b24b219c"),
		},
		{
			hexToBig("54302dcb0e6cc1c6e44cca8f61a63bb2ca65048d53fb325d36ff12c49a58202"),
			hexToBig("1b77b3e37d13504b348046268d8ae25ce98ad783c25561a879dcc77e99c2426"),
		},
	}
)

func hexToBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("starkcrypto: bad hex constant " + s)
	}
	return v
}

// onCurve reports whether p satisfies the curve equation. The point at
// infinity counts as on the curve.
func onCurve(p *point) bool {
	if p == nil {
		return true
	}
	lhs := new(big.Int).Mul(p.y, p.y)
	lhs.Mod(lhs, FieldPrime)
	rhs := new(big.Int).Mul(p.x, p.x)
	rhs.Mul(rhs, p.x)
	rhs.Add(rhs, new(big.Int).Mul(curveAlpha, p.x))
	rhs.Add(rhs, curveBeta)
	rhs.Mod(rhs, FieldPrime)
	return lhs.Cmp(rhs) == 0
}

func init() {
	for _, p := range append([]*point{shiftPoint}, pedersenPoints[:]...) {
		if !onCurve(p) {
			panic("starkcrypto: constant point off curve")
		}
	}
}
